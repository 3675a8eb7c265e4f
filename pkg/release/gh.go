// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package release

import (
	"os/exec"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/cmdutil"
)

// GH drives the release CLI against one "owner/repo".
type GH struct {
	// NewCmd constructs commands; defaults to exec.Command.
	NewCmd cmdutil.Factory
	// Repo is the "owner/repo" slug.
	Repo string
}

func (h *GH) cmd(args ...string) *exec.Cmd {
	newCmd := h.NewCmd
	if newCmd == nil {
		newCmd = exec.Command
	}
	args = append(args, "--repo", h.Repo)
	return newCmd("gh", args...)
}

// ReleaseExists reports whether a release for tag exists. Any lookup failure
// counts as absence; creation will surface real problems.
func (h *GH) ReleaseExists(tag string) bool {
	err := cmdutil.Run(h.cmd("release", "view", tag))
	return err == nil
}

// CreateDraftRelease creates a draft release on tag with auto-generated
// notes appended to the composed ones.
func (h *GH) CreateDraftRelease(tag, title, notes string, prerelease bool) error {
	args := []string{"release", "create", tag, "--draft", "--generate-notes", "--title", title, "--notes", notes}
	if prerelease {
		args = append(args, "--prerelease")
	}
	return cmdutil.Run(h.cmd(args...))
}

// DeleteRelease removes the release for tag. The tag itself is deleted
// separately so its removal can be sequenced.
func (h *GH) DeleteRelease(tag string) error {
	return cmdutil.Run(h.cmd("release", "delete", tag, "--yes"))
}

// PublishRelease un-drafts the release and, when latest is set, marks it as
// the repository's latest. Prereleases are published without the latest
// mark.
func (h *GH) PublishRelease(tag string, latest bool) error {
	args := []string{"release", "edit", tag, "--draft=false"}
	if latest {
		args = append(args, "--latest")
	}
	return cmdutil.Run(h.cmd(args...))
}

// ReleaseURL returns the web URL of the release for tag.
func (h *GH) ReleaseURL(tag string) (string, error) {
	return cmdutil.Output(h.cmd("release", "view", tag, "--json", "url", "--jq", ".url"))
}
