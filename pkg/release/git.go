// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package release

import (
	"os/exec"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/cmdutil"
)

// Git drives tag operations on the local checkout and its origin remote.
type Git struct {
	// NewCmd constructs commands; defaults to exec.Command.
	NewCmd cmdutil.Factory
	// Dir is the repository directory; empty means the working directory.
	Dir string
}

func (g *Git) cmd(args ...string) *exec.Cmd {
	newCmd := g.NewCmd
	if newCmd == nil {
		newCmd = exec.Command
	}
	cmd := newCmd("git", args...)
	if g.Dir != "" {
		cmd.Dir = g.Dir
	}
	return cmd
}

// CreateAnnotatedTag creates tag at HEAD with the given message.
func (g *Git) CreateAnnotatedTag(tag, message string) error {
	return cmdutil.Run(g.cmd("tag", "-a", tag, "-m", message))
}

// PushTag pushes tag to origin.
func (g *Git) PushTag(tag string) error {
	return cmdutil.Run(g.cmd("push", "origin", tag))
}

// DeleteLocalTag removes tag from the local repository.
func (g *Git) DeleteLocalTag(tag string) error {
	return cmdutil.Run(g.cmd("tag", "-d", tag))
}

// DeleteRemoteTag removes tag from origin.
func (g *Git) DeleteRemoteTag(tag string) error {
	return cmdutil.Run(g.cmd("push", "origin", ":refs/tags/"+tag))
}

// ForceTag moves (or creates) tag to point at commit.
func (g *Git) ForceTag(tag, commit string) error {
	return cmdutil.Run(g.cmd("tag", "-f", tag, commit))
}

// ForcePushTag force-pushes tag to origin.
func (g *Git) ForcePushTag(tag string) error {
	return cmdutil.Run(g.cmd("push", "-f", "origin", tag))
}

// ResolveCommit returns the commit hash a ref points at, peeling annotated
// tags.
func (g *Git) ResolveCommit(ref string) (string, error) {
	return cmdutil.Output(g.cmd("rev-parse", ref+"^{commit}"))
}
