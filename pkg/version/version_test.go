// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package version

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPatchBump(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{"simple", "0.1.4", "0.1.5"},
		{"carries major minor", "2.3.9", "2.3.10"},
		{"v prefix", "v1.0.0", "1.0.1"},
		{"empty", "", "0.1.0"},
		{"garbage", "not-a-version", "0.1.0"},
		{"whitespace", "   ", "0.1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PatchBump(tt.current); got != tt.want {
				t.Errorf("PatchBump(%q) = %q, want %q", tt.current, got, tt.want)
			}
		})
	}
}

func TestDecideManualWins(t *testing.T) {
	got := Decide("2.0.0", Detected{BumpType: "minor", Version: "1.5.0"}, "1.4.2")
	want := Decision{
		Source:        SourceManual,
		BumpType:      "manual",
		FinalVersion:  "2.0.0",
		ShouldRelease: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decide mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideDetectedUsedUnmodified(t *testing.T) {
	got := Decide("", Detected{BumpType: "minor", Version: "1.5.0"}, "1.4.2")
	want := Decision{
		Source:        SourceAuto,
		BumpType:      "minor",
		FinalVersion:  "1.5.0",
		ShouldRelease: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decide mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideSynthesizesPatchBump(t *testing.T) {
	tests := []struct {
		name     string
		detected Detected
		current  string
		want     string
	}{
		{"bump none", Detected{BumpType: "none"}, "0.1.4", "0.1.5"},
		{"no detected version", Detected{BumpType: "minor"}, "0.1.4", "0.1.5"},
		{"nothing detected", Detected{}, "0.1.4", "0.1.5"},
		{"no current version", Detected{BumpType: "none"}, "", "0.1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide("", tt.detected, tt.current)
			if got.FinalVersion != tt.want {
				t.Errorf("FinalVersion = %q, want %q", got.FinalVersion, tt.want)
			}
			if got.BumpType != "patch" {
				t.Errorf("BumpType = %q, want patch", got.BumpType)
			}
			if !got.ShouldRelease {
				t.Error("ShouldRelease must always be true")
			}
		})
	}
}

func TestIsPrerelease(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"1.2.3", false},
		{"1.2.3-beta", true},
		{"1.2.3-alpha.1", true},
		{"1.2.3-rc.2", true},
		{"2.0.0-preview", true},
		{"2.0.0-pre1", true},
		{"10.0.0", false},
	}
	for _, tt := range tests {
		if got := IsPrerelease(tt.version); got != tt.want {
			t.Errorf("IsPrerelease(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}
