// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package release creates the semantic release and its multi-level floating
// tags. A smart-release tool is preferred when its entry command resolves;
// otherwise a manual git+gh choreography reproduces the same external
// behavior: base tag vMAJOR.MINOR.PATCH, floating tags vMAJOR, vMAJOR.MINOR
// and latest at the same commit, draft-then-publish release, prerelease
// handling.
package release

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/gallery"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/version"
	"github.com/Masterminds/semver/v3"
)

// settleDelay gives the remote time to settle after a release and tag are
// deleted before the same tag is recreated.
const settleDelay = 5 * time.Second

// Request describes the release to create.
type Request struct {
	// Version without leading "v".
	Version     string
	BumpType    string
	PackageName string
	// Repo is the "owner/repo" slug.
	Repo string
}

// Result is the outcome either tier reports.
type Result struct {
	Created    bool
	BaseTag    string
	ReleaseURL string
}

// Orchestrator runs the two-tier release.
type Orchestrator struct {
	// Session carries the capabilities bootstrap imported; nil skips the
	// smart tier.
	Session *gallery.Session
	Git     *Git
	GH      *GH
	// Sleep is the settling delay; defaults to time.Sleep.
	Sleep func(time.Duration)
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

func (o *Orchestrator) sleep(d time.Duration) {
	if o.Sleep != nil {
		o.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Run prefers the smart tier and falls back to the manual choreography on
// tool absence, tool error, or a reported failure. The fallback runs at most
// once.
func (o *Orchestrator) Run(req Request) (*Result, error) {
	if tool, reason := DetectSmartTool(o.Session); tool != nil {
		o.logf("releasing %s v%s via %s", req.PackageName, req.Version, SmartToolCommand)
		res, err := tool.Run(req, ComposeNotes(req, true))
		if err == nil {
			return res, nil
		}
		o.logf("warning: smart release failed, falling back to manual choreography: %v", err)
	} else {
		o.logf("smart release unavailable (%s); using manual choreography", reason)
	}
	return o.manual(req)
}

// manual reproduces the smart tool's external behavior step by step.
func (o *Orchestrator) manual(req Request) (*Result, error) {
	base := "v" + req.Version
	prerelease := version.IsPrerelease(req.Version)
	notes := ComposeNotes(req, false)

	if o.GH.ReleaseExists(base) {
		o.logf("release %s already exists; deleting and recreating", base)
		if err := o.GH.DeleteRelease(base); err != nil {
			return nil, fmt.Errorf("delete existing release %s: %w", base, err)
		}
		if err := o.Git.DeleteRemoteTag(base); err != nil {
			return nil, fmt.Errorf("delete existing tag %s: %w", base, err)
		}
		// Absent locally is fine; the remote was authoritative.
		if err := o.Git.DeleteLocalTag(base); err != nil {
			o.logf("local tag %s not deleted: %v", base, err)
		}
		o.sleep(settleDelay)
	}

	o.logf("creating base tag %s", base)
	if err := o.Git.CreateAnnotatedTag(base, releaseTitle(req, prerelease)); err != nil {
		return nil, fmt.Errorf("create tag %s: %w", base, err)
	}
	if err := o.Git.PushTag(base); err != nil {
		return nil, fmt.Errorf("push tag %s: %w", base, err)
	}

	if err := o.GH.CreateDraftRelease(base, releaseTitle(req, prerelease), notes, prerelease); err != nil {
		return nil, fmt.Errorf("create draft release %s: %w", base, err)
	}

	commit, err := o.Git.ResolveCommit(base)
	if err != nil {
		return nil, fmt.Errorf("resolve commit of %s: %w", base, err)
	}
	derived, err := DerivedTags(req.Version)
	if err != nil {
		return nil, err
	}
	for _, tag := range derived {
		o.logf("moving floating tag %s to %s", tag, commit)
		// Delete before recreate so two refs with the same name never
		// coexist; absent tags are fine.
		if err := o.Git.DeleteLocalTag(tag); err != nil {
			o.logf("local tag %s not deleted: %v", tag, err)
		}
		if err := o.Git.DeleteRemoteTag(tag); err != nil {
			o.logf("remote tag %s not deleted: %v", tag, err)
		}
		if err := o.Git.ForceTag(tag, commit); err != nil {
			return nil, fmt.Errorf("create floating tag %s: %w", tag, err)
		}
		if err := o.Git.ForcePushTag(tag); err != nil {
			return nil, fmt.Errorf("push floating tag %s: %w", tag, err)
		}
	}

	if err := o.GH.PublishRelease(base, !prerelease); err != nil {
		return nil, fmt.Errorf("publish release %s: %w", base, err)
	}

	url, err := o.GH.ReleaseURL(base)
	if err != nil {
		o.logf("warning: could not resolve release url for %s: %v", base, err)
		url = ""
	}
	return &Result{Created: true, BaseTag: base, ReleaseURL: url}, nil
}

// DerivedTags returns the floating tags for v: vMAJOR, vMAJOR.MINOR, and
// latest.
func DerivedTags(v string) ([]string, error) {
	parsed, err := semver.NewVersion(strings.TrimPrefix(v, "v"))
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", v, err)
	}
	return []string{
		fmt.Sprintf("v%d", parsed.Major()),
		fmt.Sprintf("v%d.%d", parsed.Major(), parsed.Minor()),
		"latest",
	}, nil
}

func releaseTitle(req Request, prerelease bool) string {
	title := fmt.Sprintf("%s v%s", req.PackageName, req.Version)
	if prerelease {
		title += " (pre-release)"
	}
	return title
}

// ComposeNotes builds the release notes. The smart tier adds its tag-matrix
// section; the manual tier omits it and produces otherwise identical notes.
func ComposeNotes(req Request, smart bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s v%s\n\n", req.PackageName, req.Version)
	fmt.Fprintf(&b, "Automated release of %s (bump: %s).\n\n", req.PackageName, req.BumpType)
	fmt.Fprintf(&b, "- Base tag: v%s\n", req.Version)
	if tags, err := DerivedTags(req.Version); err == nil {
		fmt.Fprintf(&b, "- Floating tags: %s\n", strings.Join(tags, ", "))
	}
	if smart {
		fmt.Fprintf(&b, "- Tag matrix maintained by %s\n", SmartToolCommand)
	}
	return b.String()
}
