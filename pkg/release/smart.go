// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package release

import (
	"errors"
	"fmt"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/gallery"
)

// SmartToolCommand is the smart-release tool's entry command.
const SmartToolCommand = "Invoke-SmartTagRelease"

// SmartTool is a detected, usable smart-release capability.
type SmartTool struct {
	sess *gallery.Session
}

// DetectSmartTool probes for the smart-release tool in sess. Unavailability
// is a reason string, never an error: the caller simply runs the manual
// choreography instead.
func DetectSmartTool(sess *gallery.Session) (*SmartTool, string) {
	if sess == nil {
		return nil, "no capability session"
	}
	if !sess.HasCommand(SmartToolCommand) {
		return nil, SmartToolCommand + " is not available"
	}
	return &SmartTool{sess: sess}, ""
}

// smartOutcome is the tool's serialized result.
type smartOutcome struct {
	Success     bool     `json:"success"`
	TagsCreated []string `json:"tagsCreated"`
	ReleaseURL  string   `json:"releaseUrl"`
	Error       string   `json:"error,omitempty"`
}

// Run invokes the tool, which performs draft, multi-level tags, and publish
// as one unit. Tags are pushed to the remote and an existing same-named
// release is overwritten.
func (t *SmartTool) Run(req Request, notes string) (*Result, error) {
	script := fmt.Sprintf("%s -PackageName %s -Version %s -Repository %s -ReleaseNotes %s -PushTags -Force",
		SmartToolCommand,
		gallery.Quote(req.PackageName),
		gallery.Quote(req.Version),
		gallery.Quote(req.Repo),
		gallery.Quote(notes))
	var out smartOutcome
	if err := t.sess.InvokeJSON(script, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		if out.Error != "" {
			return nil, fmt.Errorf("smart release failed: %s", out.Error)
		}
		return nil, errors.New("smart release reported failure without detail")
	}
	return &Result{
		Created:    true,
		BaseTag:    "v" + req.Version,
		ReleaseURL: out.ReleaseURL,
	}, nil
}
