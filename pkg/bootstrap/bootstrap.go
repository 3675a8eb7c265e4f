// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bootstrap installs the dependency chain in order. The registry
// client does not resolve transitive dependencies, so each package is
// installed, case-repaired, and imported before the next one starts.
package bootstrap

import (
	"fmt"
	"log"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/casefix"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/gallery"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/project"
)

// InstallError reports which package and step broke the chain. Remaining
// steps are not attempted.
type InstallError struct {
	Package string
	Step    string // install, repair, or import
	Err     error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Step, e.Package, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Installer runs the dependency-ordered chain against one ephemeral feed
// registration.
type Installer struct {
	Client gallery.Client
	Repair *casefix.Engine
	Chain  project.Chain
	// Endpoint supplies URI and credentials. Its Name is ignored; every run
	// registers under a fresh ephemeral name.
	Endpoint gallery.Endpoint
	// Logf receives per-step progress; defaults to log.Printf.
	Logf func(format string, args ...any)
}

func (in *Installer) logf(format string, args ...any) {
	if in.Logf != nil {
		in.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Run installs every chain package in order and returns the session that
// accumulated their imports, so callers can invoke commands the installed
// modules export. The ephemeral registration is removed on every exit path.
func (in *Installer) Run() (*gallery.Session, error) {
	ep := in.Endpoint
	ep.Name = gallery.EphemeralName("bootstrap")
	sess := in.Client.NewSession()

	err := gallery.WithEphemeral(in.Client, ep, func() error {
		for _, p := range in.Chain.Packages {
			in.logf("installing %s %s", p.Name, orLatest(p.Version))
			ref := gallery.PackageRef{Name: p.Name, Version: p.Version}
			if err := in.Client.Install(ref, ep.Name, ep); err != nil {
				return &InstallError{Package: p.Name, Step: "install", Err: err}
			}
			if in.Repair != nil {
				rep, err := in.Repair.Repair(p.Name)
				if err != nil {
					return &InstallError{Package: p.Name, Step: "repair", Err: err}
				}
				if n := len(rep.Renames); n > 0 {
					in.logf("repaired %d name(s) for %s", n, p.Name)
				}
			}
			if err := sess.Import(p.Name); err != nil {
				return &InstallError{Package: p.Name, Step: "import", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func orLatest(version string) string {
	if version == "" {
		return "(latest)"
	}
	return version
}
