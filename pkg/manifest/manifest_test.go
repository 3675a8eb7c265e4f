// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/gallery"
)

const testModule = "K.PSGallery.PackageRepoProvider.GitLab"

// scriptedSession answers the Get-Command probe and the resolve invocation.
func scriptedSession(t *testing.T, hasResolver bool, resolveOut string, resolveErr error) *gallery.Session {
	t.Helper()
	return gallery.NewSessionWithRunner(func(script string) (string, error) {
		switch {
		case strings.Contains(script, "Get-Command"):
			if hasResolver {
				return ResolveCommand, nil
			}
			return "", nil
		case strings.Contains(script, ResolveCommand):
			return resolveOut, resolveErr
		default:
			t.Fatalf("unexpected script: %s", script)
			return "", nil
		}
	})
}

func TestDiscoverViaCollaborator(t *testing.T) {
	out := `{"isValid":true,"errors":[],"warnings":[],"manifestPath":"/work/mod/mod.psd1","method":"collaborator"}`
	sess := scriptedSession(t, true, out, nil)

	res, err := Discover(sess, testModule, "/work")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.ManifestPath != "/work/mod/mod.psd1" || res.Method != "collaborator" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestDiscoverCollaboratorInvalidIsFatal(t *testing.T) {
	out := `{"isValid":false,"errors":["bad GUID","missing RootModule"],"manifestPath":"","method":"collaborator"}`
	sess := scriptedSession(t, true, out, nil)

	_, err := Discover(sess, testModule, "/work")
	var derr *DiscoveryError
	if !errors.As(err, &derr) {
		t.Fatalf("want DiscoveryError, got %v", err)
	}
	for _, want := range []string{"bad GUID", "missing RootModule"} {
		if !strings.Contains(derr.Error(), want) {
			t.Errorf("aggregated error %q missing %q", derr.Error(), want)
		}
	}
}

func TestDiscoverFallsBackWhenCollaboratorAbsent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, testModule, testModule+".psd1")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("@{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := scriptedSession(t, false, "", nil)

	res, err := Discover(sess, testModule, root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.ManifestPath != path {
		t.Errorf("ManifestPath = %q, want %q", res.ManifestPath, path)
	}
	if res.Method != "naive-search" {
		t.Errorf("Method = %q, want naive-search", res.Method)
	}
}

func TestDiscoverFallsBackWhenCollaboratorErrors(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, testModule+".psd1")
	if err := os.WriteFile(path, []byte("@{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := scriptedSession(t, true, "", errors.New("resolver crashed"))

	res, err := Discover(sess, testModule, root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.ManifestPath != path {
		t.Errorf("ManifestPath = %q, want root-level manifest %q", res.ManifestPath, path)
	}
}

func TestDiscoverNothingFound(t *testing.T) {
	_, err := Discover(nil, testModule, t.TempDir())
	var derr *DiscoveryError
	if !errors.As(err, &derr) {
		t.Fatalf("want DiscoveryError, got %v", err)
	}
}
