// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSessionReplaysImports(t *testing.T) {
	var scripts []string
	s := NewSessionWithRunner(func(script string) (string, error) {
		scripts = append(scripts, script)
		return "", nil
	})

	if err := s.Import("K.PSGallery.LoggingModule"); err != nil {
		t.Fatal(err)
	}
	if err := s.Import("K.PSGallery.SmartVersioning"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Invoke("Get-BumpType"); err != nil {
		t.Fatal(err)
	}

	last := scripts[len(scripts)-1]
	wantPrefix := "Import-Module 'K.PSGallery.LoggingModule' -Force; " +
		"Import-Module 'K.PSGallery.SmartVersioning' -Force; "
	if !strings.HasPrefix(last, wantPrefix) {
		t.Errorf("invocation missing import prelude:\n%s", last)
	}
	if !strings.HasSuffix(last, "Get-BumpType") {
		t.Errorf("invocation missing script body:\n%s", last)
	}

	// The second import already sees the first.
	if !strings.HasPrefix(scripts[1], "Import-Module 'K.PSGallery.LoggingModule' -Force; ") {
		t.Errorf("second import did not replay the first:\n%s", scripts[1])
	}
}

func TestSessionImportFailureNotRecorded(t *testing.T) {
	s := NewSessionWithRunner(func(script string) (string, error) {
		if strings.Contains(script, "Broken.Module") {
			return "", errors.New("module not found")
		}
		return "", nil
	})
	if err := s.Import("Broken.Module"); err == nil {
		t.Fatal("expected import error")
	}
	if err := s.Import("Good.Module"); err != nil {
		t.Fatal(err)
	}
	want := []string{"Good.Module"}
	if diff := cmp.Diff(want, s.Imports()); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionInvokeJSON(t *testing.T) {
	var got string
	s := NewSessionWithRunner(func(script string) (string, error) {
		got = script
		return `{"isValid":true,"manifestPath":"/m/K.psd1"}`, nil
	})

	var out struct {
		IsValid      bool   `json:"isValid"`
		ManifestPath string `json:"manifestPath"`
	}
	if err := s.InvokeJSON("Resolve-ModuleManifest -ModuleName 'K'", &out); err != nil {
		t.Fatalf("InvokeJSON: %v", err)
	}
	if !strings.HasSuffix(got, "| ConvertTo-Json -Depth 8 -Compress") {
		t.Errorf("script missing JSON serialization:\n%s", got)
	}
	if !out.IsValid || out.ManifestPath != "/m/K.psd1" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestSessionInvokeJSONEmptyOutput(t *testing.T) {
	s := NewSessionWithRunner(func(string) (string, error) { return "  \n", nil })
	var v any
	if err := s.InvokeJSON("Get-Nothing", &v); err == nil {
		t.Error("expected error for empty result")
	}
}

func TestSessionHasCommand(t *testing.T) {
	s := NewSessionWithRunner(func(script string) (string, error) {
		if strings.Contains(script, "'Invoke-SmartTagRelease'") {
			return "Invoke-SmartTagRelease\n", nil
		}
		return "", nil
	})
	if !s.HasCommand("Invoke-SmartTagRelease") {
		t.Error("HasCommand = false for resolvable command")
	}
	if s.HasCommand("No-SuchCommand") {
		t.Error("HasCommand = true for unresolvable command")
	}
}

func TestSessionEnviron(t *testing.T) {
	s := NewSessionWithRunner(func(string) (string, error) { return "", nil })
	s.SetEnv(EnvFeedUser, "grexy")
	s.SetEnv(EnvFeedSecret, "glpat-sekret")

	want := []string{EnvFeedUser + "=grexy", EnvFeedSecret + "=glpat-sekret"}
	if diff := cmp.Diff(want, s.Environ()); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
}
