// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package publish pushes the module to the target feed with a two-tier
// strategy: the provider abstraction first, then a baseline direct publish
// against a discovered manifest. The escalation happens at most once.
package publish

import (
	"fmt"
	"log"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/gallery"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/manifest"
)

// Provider-abstraction entry commands. Their signatures belong to the
// installed K.PSGallery.PackageRepoProvider module.
const (
	cmdRegisterRepository = "Register-PackageRepository"
	cmdPublishPackage     = "Publish-PackageModule"
	cmdRemoveRepository   = "Remove-PackageRepository"
)

// Tier names for attempt records.
const (
	TierProvider = "provider"
	TierDirect   = "direct"
)

// Attempt records one tier's outcome.
type Attempt struct {
	Tier string
	Err  error
}

// Result is the overall publish outcome.
type Result struct {
	Published bool
	Attempts  []Attempt
}

// Bootstrapper installs the provider abstraction and returns the session
// that imported it. Satisfied by *bootstrap.Installer.
type Bootstrapper interface {
	Run() (*gallery.Session, error)
}

// Orchestrator publishes one package version to the target endpoint.
type Orchestrator struct {
	Client      gallery.Client
	Bootstrap   Bootstrapper
	Target      gallery.Endpoint
	PackageName string
	Version     string
	// SearchRoot is where the fallback tier looks for the manifest,
	// usually the repository checkout.
	SearchRoot string
	// Logf receives progress and fallback triggers; defaults to log.Printf.
	Logf func(format string, args ...any)
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Run attempts the provider tier and escalates to the direct tier exactly
// once on any primary failure. The returned error is non-nil only when both
// tiers failed; callers map that to a non-zero exit.
func (o *Orchestrator) Run() (*Result, error) {
	res := &Result{}

	sess, perr := o.providerTier()
	if perr == nil {
		res.Published = true
		res.Attempts = append(res.Attempts, Attempt{Tier: TierProvider})
		return res, nil
	}
	o.logf("warning: provider publish failed, falling back to direct publish: %v", perr)
	res.Attempts = append(res.Attempts, Attempt{Tier: TierProvider, Err: perr})

	if ferr := o.directTier(sess); ferr != nil {
		res.Attempts = append(res.Attempts, Attempt{Tier: TierDirect, Err: ferr})
		return res, ferr
	}
	res.Published = true
	res.Attempts = append(res.Attempts, Attempt{Tier: TierDirect})
	return res, nil
}

// providerTier bootstraps the provider abstraction and publishes through it.
// The session is returned even on failure so the fallback can reuse whatever
// capabilities were already imported.
func (o *Orchestrator) providerTier() (*gallery.Session, error) {
	sess, err := o.Bootstrap.Run()
	if err != nil {
		return nil, err
	}
	sess.SetEnv(gallery.EnvFeedUser, o.Target.Owner)
	sess.SetEnv(gallery.EnvFeedSecret, o.Target.Secret)

	register := fmt.Sprintf("%s -Name %s -Uri %s -Owner $env:%s -ApiKey $env:%s",
		cmdRegisterRepository, gallery.Quote(o.Target.Name), gallery.Quote(o.Target.URI),
		gallery.EnvFeedUser, gallery.EnvFeedSecret)
	if o.Target.Trusted {
		register += " -Trusted"
	}
	if _, err := sess.Invoke(register); err != nil {
		return sess, err
	}
	defer func() {
		remove := fmt.Sprintf("%s -Name %s", cmdRemoveRepository, gallery.Quote(o.Target.Name))
		if _, err := sess.Invoke(remove); err != nil {
			log.Printf("warning: failed to remove target repository %s: %v", o.Target.Name, err)
		}
	}()

	publish := fmt.Sprintf("%s -Name %s -Version %s -Repository %s",
		cmdPublishPackage, gallery.Quote(o.PackageName), gallery.Quote(o.Version), gallery.Quote(o.Target.Name))
	if _, err := sess.Invoke(publish); err != nil {
		return sess, err
	}
	return sess, nil
}

// directTier registers the target endpoint with the registry client itself
// and publishes the discovered manifest. sess may be nil when the provider
// tier failed before a session existed; discovery then skips the
// collaborator.
func (o *Orchestrator) directTier(sess *gallery.Session) error {
	if err := o.Client.RegisterRepository(o.Target); err != nil {
		return &gallery.RegistrationError{Name: o.Target.Name, Err: err}
	}
	defer func() {
		if err := o.Client.UnregisterRepository(o.Target.Name); err != nil {
			log.Printf("warning: failed to unregister repository %s: %v", o.Target.Name, err)
		}
	}()

	found, err := manifest.Discover(sess, o.PackageName, o.SearchRoot)
	if err != nil {
		return err
	}
	o.logf("publishing %s %s from %s", o.PackageName, o.Version, found.ManifestPath)
	return o.Client.Publish(found.ManifestPath, o.Target.Name, o.Target)
}
