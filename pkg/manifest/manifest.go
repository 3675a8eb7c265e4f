// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package manifest locates and validates the module manifest to publish.
package manifest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/gallery"
)

// ResolveCommand is the discovery collaborator's entry command.
const ResolveCommand = "Resolve-ModuleManifest"

// Result is the discovery outcome.
type Result struct {
	IsValid      bool     `json:"isValid"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	ManifestPath string   `json:"manifestPath"`
	Method       string   `json:"method"`
}

// DiscoveryError aggregates the error text of a failed discovery. It is
// fatal to the tier that needed the manifest.
type DiscoveryError struct {
	Errors []string
}

func (e *DiscoveryError) Error() string {
	return "manifest discovery failed: " + strings.Join(e.Errors, "; ")
}

// Discover locates the manifest for moduleName. When the discovery
// collaborator is importable in sess it is authoritative: an invalid result
// is an error, not a reason to search on. Without the collaborator (or when
// invoking it fails outright) Discover falls back to a naive search under a
// module-named subdirectory of searchRoot, then searchRoot itself.
func Discover(sess *gallery.Session, moduleName, searchRoot string) (*Result, error) {
	if sess != nil && sess.HasCommand(ResolveCommand) {
		script := fmt.Sprintf("%s -ModuleName %s -SearchRoot %s",
			ResolveCommand, gallery.Quote(moduleName), gallery.Quote(searchRoot))
		var res Result
		if err := sess.InvokeJSON(script, &res); err != nil {
			log.Printf("warning: manifest discovery collaborator failed, falling back to naive search: %v", err)
		} else {
			for _, w := range res.Warnings {
				log.Printf("warning: manifest discovery: %s", w)
			}
			if !res.IsValid {
				return nil, &DiscoveryError{Errors: res.Errors}
			}
			return &res, nil
		}
	}
	return naiveSearch(moduleName, searchRoot)
}

func naiveSearch(moduleName, searchRoot string) (*Result, error) {
	candidates := []string{
		filepath.Join(searchRoot, moduleName, moduleName+".psd1"),
		filepath.Join(searchRoot, moduleName+".psd1"),
	}
	for _, path := range candidates {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return &Result{IsValid: true, ManifestPath: path, Method: "naive-search"}, nil
		}
	}
	return nil, &DiscoveryError{Errors: []string{
		fmt.Sprintf("no manifest named %s.psd1 under %s", moduleName, searchRoot),
	}}
}
