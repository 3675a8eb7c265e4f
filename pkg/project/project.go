// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package project loads repository-level configuration: psgallery.toml for
// the tool itself and bootstrap.yaml for the dependency-ordered package
// chain.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	configName = "psgallery.toml"
	chainName  = "bootstrap.yaml"
)

// Config is psgallery.toml.
type Config struct {
	// PackageName is the canonical, case-sensitive name of the module this
	// repository publishes.
	PackageName string `toml:"package_name"`
	// Repo is the "owner/repo" slug releases are created against.
	Repo string `toml:"repo"`
	// Owner is the feed credential user name.
	Owner string `toml:"owner,omitempty"`
	// EndpointURI is the package feed the publish targets.
	EndpointURI string `toml:"endpoint_uri"`
	// EndpointName is the fixed target repository name registered for
	// publishes. Concurrent runs sharing it must be serialized by the caller.
	EndpointName string `toml:"endpoint_name,omitempty"`
	// ModulesRoot overrides the module-install root the case repair scans.
	ModulesRoot string `toml:"modules_root,omitempty"`
	// CasefixFiles adds lowercase→canonical entries to the repair table.
	CasefixFiles map[string]string `toml:"casefix_files,omitempty"`
}

// Location is a loaded config and where it was found.
type Location struct {
	Path   string
	Dir    string
	Config *Config
}

// Load walks upward from startDir looking for psgallery.toml. A missing
// config returns (nil, nil).
func Load(startDir string) (*Location, error) {
	path, err := findUp(startDir, configName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &Location{Path: path, Dir: filepath.Dir(path), Config: &cfg}, nil
}

func findUp(startDir, name string) (string, error) {
	dir := filepath.Clean(startDir)
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// DefaultModulesRoot is the user-scope module path the registry client
// installs into.
func DefaultModulesRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "Modules")
	}
	return filepath.Join(home, ".local", "share", "powershell", "Modules")
}

// ChainPackage is one entry of the bootstrap chain.
type ChainPackage struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

// Chain is the explicit, dependency-first package sequence the bootstrap
// installs. Order matters: the registry client does not resolve transitive
// dependencies, so dependencies must precede their dependents.
type Chain struct {
	Packages []ChainPackage `yaml:"packages"`
}

// DefaultChain is the fixed chain used when no bootstrap.yaml overrides it.
func DefaultChain() Chain {
	return Chain{Packages: []ChainPackage{
		{Name: "K.PSGallery.LoggingModule"},
		{Name: "K.PSGallery.SmartVersioning"},
		{Name: "K.PSGallery.PackageRepoProvider"},
	}}
}

// LoadChain reads bootstrap.yaml from dir, returning the default chain when
// the file does not exist.
func LoadChain(dir string) (Chain, error) {
	path := filepath.Join(dir, chainName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultChain(), nil
		}
		return Chain{}, err
	}
	var chain Chain
	if err := yaml.Unmarshal(data, &chain); err != nil {
		return Chain{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(chain.Packages) == 0 {
		return Chain{}, fmt.Errorf("%s declares no packages", path)
	}
	for i, p := range chain.Packages {
		if p.Name == "" {
			return Chain{}, fmt.Errorf("%s: package %d has no name", path, i)
		}
	}
	return chain, nil
}
