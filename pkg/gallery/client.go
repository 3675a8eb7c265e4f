// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gallery wraps the external PSResourceGet-style registry client.
// The client has two known defects the rest of this repository orchestrates
// around: it does not resolve transitive dependencies over the v3 wire
// protocol, and on case-sensitive filesystems it materializes installed
// packages under lowercased names.
package gallery

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/cmdutil"
)

// PackageRef identifies a package to install. Name is the canonical,
// case-sensitive name; Version may be empty for latest.
type PackageRef struct {
	Name    string
	Version string
}

// Client is the registry-client surface the orchestrators depend on.
type Client interface {
	RegisterRepository(ep Endpoint) error
	UnregisterRepository(name string) error
	Install(ref PackageRef, repo string, ep Endpoint) error
	Publish(manifestPath, repo string, ep Endpoint) error
	NewSession() *Session
}

// Feed credentials are handed to child processes through these variables.
const (
	EnvFeedUser   = "PSGALLERY_FEED_USER"
	EnvFeedSecret = "PSGALLERY_FEED_SECRET"
)

// PwshClient drives the registry client through pwsh. All commands run
// non-interactively; feed credentials travel via the child environment, not
// argv.
type PwshClient struct {
	// NewCmd constructs commands; defaults to exec.Command.
	NewCmd cmdutil.Factory
	// Pwsh is the PowerShell binary; defaults to "pwsh".
	Pwsh string
}

var _ Client = (*PwshClient)(nil)

func (c *PwshClient) shell() string {
	if c.Pwsh != "" {
		return c.Pwsh
	}
	return "pwsh"
}

func (c *PwshClient) cmd(script string, ep *Endpoint) *exec.Cmd {
	newCmd := c.NewCmd
	if newCmd == nil {
		newCmd = exec.Command
	}
	cmd := newCmd(c.shell(), "-NoProfile", "-NonInteractive", "-Command", script)
	if ep != nil && ep.Secret != "" {
		cmd.Env = append(baseEnv(cmd),
			EnvFeedUser+"="+ep.Owner,
			EnvFeedSecret+"="+ep.Secret,
		)
	}
	return cmd
}

// baseEnv preserves any environment the factory already set on cmd.
func baseEnv(cmd *exec.Cmd) []string {
	if cmd.Env != nil {
		return cmd.Env
	}
	return os.Environ()
}

func (c *PwshClient) run(script string, ep *Endpoint) error {
	return cmdutil.Run(c.cmd(script, ep))
}

// Quote single-quotes s for safe interpolation into a pwsh script.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ErrNoCredential reports a credentialed operation attempted against an
// endpoint with no feed secret. Caught Go-side; the script would otherwise
// fail opaquely dereferencing an unset environment variable.
var ErrNoCredential = errors.New("no feed credential set")

func credentialed(ep Endpoint) error {
	if ep.Secret == "" {
		return fmt.Errorf("%w for repository %s", ErrNoCredential, ep.Name)
	}
	return nil
}

// credentialPrelude builds a PSCredential from the environment the command
// was launched with.
const credentialPrelude = `$sec = ConvertTo-SecureString $env:PSGALLERY_FEED_SECRET -AsPlainText -Force; ` +
	`$cred = New-Object System.Management.Automation.PSCredential($env:PSGALLERY_FEED_USER, $sec); `

func (c *PwshClient) RegisterRepository(ep Endpoint) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Register-PSResourceRepository -Name %s -Uri %s", Quote(ep.Name), Quote(ep.URI))
	if ep.Trusted {
		b.WriteString(" -Trusted")
	}
	return c.run(b.String(), &ep)
}

func (c *PwshClient) UnregisterRepository(name string) error {
	return c.run("Unregister-PSResourceRepository -Name "+Quote(name), nil)
}

func (c *PwshClient) Install(ref PackageRef, repo string, ep Endpoint) error {
	if err := credentialed(ep); err != nil {
		return fmt.Errorf("install %s: %w", ref.Name, err)
	}
	var b strings.Builder
	b.WriteString(credentialPrelude)
	fmt.Fprintf(&b, "Install-PSResource -Name %s", Quote(ref.Name))
	if ref.Version != "" {
		fmt.Fprintf(&b, " -Version %s", Quote(ref.Version))
	}
	fmt.Fprintf(&b, " -Repository %s -TrustRepository -Scope CurrentUser -Credential $cred", Quote(repo))
	return c.run(b.String(), &ep)
}

func (c *PwshClient) Publish(manifestPath, repo string, ep Endpoint) error {
	if err := credentialed(ep); err != nil {
		return fmt.Errorf("publish %s: %w", manifestPath, err)
	}
	var b strings.Builder
	b.WriteString(credentialPrelude)
	fmt.Fprintf(&b, "Publish-PSResource -Path %s -Repository %s -ApiKey $env:%s -Credential $cred",
		Quote(manifestPath), Quote(repo), EnvFeedSecret)
	return c.run(b.String(), &ep)
}

// NewSession returns an empty capability session backed by this client.
func (c *PwshClient) NewSession() *Session {
	s := &Session{}
	s.run = func(script string) (string, error) {
		cmd := c.cmd(script, nil)
		if env := s.Environ(); len(env) > 0 {
			cmd.Env = append(baseEnv(cmd), env...)
		}
		return cmdutil.Output(cmd)
	}
	return s
}
