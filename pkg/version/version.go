// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package version resolves the version to release from a manual override,
// an externally detected bump, and the currently published version. The
// policy is "always release": a decision never skips the release.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Source says where the final version came from.
type Source string

const (
	SourceManual  Source = "manual"
	SourceAuto    Source = "auto"
	SourceDefault Source = "default"
)

// Detected is the bump produced by the external version-detection step.
type Detected struct {
	BumpType string // "major", "minor", "patch", or "none"
	Version  string
}

// Decision is the resolved release version.
type Decision struct {
	Source        Source
	BumpType      string
	FinalVersion  string
	ShouldRelease bool
}

// Decide resolves the final version. A manual version wins unconditionally.
// Otherwise the detected bump is used as-is when it carries a version;
// a "none" bump or a missing detected version synthesizes a patch bump of
// the current published version.
func Decide(manual string, detected Detected, current string) Decision {
	if manual != "" {
		return Decision{
			Source:        SourceManual,
			BumpType:      "manual",
			FinalVersion:  strings.TrimPrefix(manual, "v"),
			ShouldRelease: true,
		}
	}
	if detected.BumpType != "" && detected.BumpType != "none" && detected.Version != "" {
		return Decision{
			Source:        SourceAuto,
			BumpType:      detected.BumpType,
			FinalVersion:  strings.TrimPrefix(detected.Version, "v"),
			ShouldRelease: true,
		}
	}
	return Decision{
		Source:        SourceDefault,
		BumpType:      "patch",
		FinalVersion:  PatchBump(current),
		ShouldRelease: true,
	}
}

// PatchBump increments the patch component of current. An empty or
// unparsable current version yields "0.1.0".
func PatchBump(current string) string {
	v, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(current), "v"))
	if err != nil {
		return "0.1.0"
	}
	next := v.IncPatch()
	return next.String()
}

// IsPrerelease reports whether version carries one of the recognized
// prerelease markers.
func IsPrerelease(version string) bool {
	v, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(version), "v"))
	if err == nil && v.Prerelease() == "" {
		return false
	}
	lower := strings.ToLower(version)
	for _, marker := range []string{"alpha", "beta", "rc", "preview", "pre"} {
		if strings.Contains(lower, "-"+marker) {
			return true
		}
	}
	return false
}
