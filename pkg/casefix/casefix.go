// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package casefix repairs on-disk name casing of installed packages. The
// registry client persists packages under lowercased directory and file
// names on case-sensitive filesystems, which breaks the case-sensitive
// module loader. Repair renames the package root, conventional subfolders,
// and well-known module files back to their canonical casing. It never
// touches file content and a second run performs zero renames.
package casefix

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ConventionalSubfolders is the fixed set of module-layout folder names the
// repair pass knows how to restore.
var ConventionalSubfolders = []string{"Public", "Private", "Functions", "Classes", "Data", "en-US"}

// moduleFileExts are the extensions of the well-known module files named
// after the package itself.
var moduleFileExts = []string{".psd1", ".psm1", ".ps1xml"}

var versionDirRe = regexp.MustCompile(`^\d+\.\d+(\.\d+)?([.-].+)?$`)

// Rename records one performed rename.
type Rename struct {
	From string
	To   string
}

// Report describes what a repair run did. RootPath is the resolved package
// root (canonical casing preferred) or empty when the package was not found.
type Report struct {
	CaseSensitive bool
	RootPath      string
	Renames       []Rename
}

// Engine repairs casing under a fixed module-install root.
type Engine struct {
	// ModulesRoot is the module-install root the registry client writes to.
	ModulesRoot string
	// ExtraFiles adds lowercase→canonical filename entries beyond the
	// derived module-file table.
	ExtraFiles map[string]string
	// Probe reports whether the filesystem at dir is case-sensitive.
	// Defaults to a marker-file probe.
	Probe func(dir string) (bool, error)
}

// Repair corrects the casing of pkg's installed tree. A missing package is a
// logged warning, not an error; the caller decides whether absence matters.
func (e *Engine) Repair(pkg string) (*Report, error) {
	rep := &Report{}

	probe := e.Probe
	if probe == nil {
		probe = ProbeCaseSensitive
	}
	sensitive, err := probe(e.ModulesRoot)
	if err != nil {
		return nil, fmt.Errorf("case-sensitivity probe: %w", err)
	}
	rep.CaseSensitive = sensitive
	if !sensitive {
		return rep, nil
	}

	canon := filepath.Join(e.ModulesRoot, pkg)
	lower := filepath.Join(e.ModulesRoot, strings.ToLower(pkg))
	switch {
	case dirExists(canon):
		// Already correct.
	case dirExists(lower):
		if err := e.rename(rep, lower, canon); err != nil {
			return rep, err
		}
	default:
		log.Printf("warning: package %s not found under %s; nothing to repair", pkg, e.ModulesRoot)
		return rep, nil
	}
	rep.RootPath = canon

	versions, err := versionDirs(canon)
	if err != nil {
		return rep, err
	}
	table := e.fileTable(pkg)
	for _, vdir := range versions {
		for _, sub := range ConventionalSubfolders {
			canonSub := filepath.Join(vdir, sub)
			lowerSub := filepath.Join(vdir, strings.ToLower(sub))
			if !dirExists(canonSub) && dirExists(lowerSub) {
				if err := e.rename(rep, lowerSub, canonSub); err != nil {
					return rep, err
				}
			}
		}
		for lowerName, canonName := range table {
			canonFile := filepath.Join(vdir, canonName)
			lowerFile := filepath.Join(vdir, lowerName)
			if !fileExists(canonFile) && fileExists(lowerFile) {
				if err := e.rename(rep, lowerFile, canonFile); err != nil {
					return rep, err
				}
			}
		}
	}
	return rep, nil
}

func (e *Engine) rename(rep *Report, from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("repair rename %s: %w", from, err)
	}
	rep.Renames = append(rep.Renames, Rename{From: from, To: to})
	return nil
}

// fileTable derives the lowercase→canonical filename mapping for pkg. The
// mapping is deliberately narrow: the module files named after the package
// plus explicitly configured extras, not a generalized case-insensitive
// rename.
func (e *Engine) fileTable(pkg string) map[string]string {
	table := make(map[string]string, len(moduleFileExts)+len(e.ExtraFiles))
	for _, ext := range moduleFileExts {
		table[strings.ToLower(pkg)+ext] = pkg + ext
	}
	for lower, canon := range e.ExtraFiles {
		table[strings.ToLower(lower)] = canon
	}
	return table
}

func versionDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, ent := range entries {
		if ent.IsDir() && versionDirRe.MatchString(ent.Name()) {
			dirs = append(dirs, filepath.Join(root, ent.Name()))
		}
	}
	return dirs, nil
}

// ProbeCaseSensitive writes a marker file under dir and checks whether its
// case-variant resolves to the same file.
func ProbeCaseSensitive(dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	f, err := os.CreateTemp(dir, ".CaseProbe-*")
	if err != nil {
		return false, err
	}
	name := f.Name()
	f.Close()
	defer os.Remove(name)

	variant := filepath.Join(dir, strings.ToLower(filepath.Base(name)))
	if variant == name {
		variant = filepath.Join(dir, strings.ToUpper(filepath.Base(name)))
	}
	if _, err := os.Stat(variant); err == nil {
		return false, nil
	} else if os.IsNotExist(err) {
		return true, nil
	} else {
		return false, err
	}
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
