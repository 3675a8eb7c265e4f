// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ciout emits the output signals and the run summary the CI
// workflow consumes.
package ciout

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
)

// Signals are the key=value outputs appended to the workflow output file.
type Signals struct {
	FinalVersion     string `output:"final-version"`
	ShouldRelease    bool   `output:"should-release"`
	BumpType         string `output:"bump-type"`
	PackagePublished bool   `output:"package-published"`
	ReleaseCreated   bool   `output:"release-created"`
	ReleaseTag       string `output:"release-tag"`
	ReleaseURL       string `output:"release-url"`
}

// AppendSignals appends s to the file named by GITHUB_OUTPUT. Outside CI
// (variable unset) it is a no-op.
func AppendSignals(s Signals) error {
	return appendToEnvFile("GITHUB_OUTPUT", func(f io.Writer) error {
		return marshalSignals(f, s)
	})
}

func marshalSignals(o io.Writer, s any) error {
	re := reflect.ValueOf(s)
	if re.Kind() == reflect.Ptr {
		re = re.Elem()
	}
	ret := re.Type()
	for i := 0; i < re.NumField(); i++ {
		field := re.Field(i)
		tag := ret.Field(i).Tag.Get("output")
		if tag == "" {
			continue
		}
		// Booleans are always emitted; a false signal is still a signal.
		if field.Kind() != reflect.Bool && field.IsZero() {
			continue
		}
		if _, err := fmt.Fprintf(o, "%s=%v\n", tag, field.Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Summary is the human-readable run report appended to the workflow step
// summary.
type Summary struct {
	Operation string
	Success   bool
	Detail    []string
	// Err is surfaced verbatim on failure.
	Err error
}

// Markdown renders the summary document.
func (s *Summary) Markdown() string {
	var b strings.Builder
	mark := "✅"
	if !s.Success {
		mark = "❌"
	}
	fmt.Fprintf(&b, "### %s %s\n\n", s.Operation, mark)
	for _, line := range s.Detail {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "\n```\n%s\n```\n", s.Err.Error())
	}
	return b.String()
}

// AppendSummary appends the rendered summary to the file named by
// GITHUB_STEP_SUMMARY. Outside CI it is a no-op.
func AppendSummary(s *Summary) error {
	return appendToEnvFile("GITHUB_STEP_SUMMARY", func(f io.Writer) error {
		_, err := io.WriteString(f, s.Markdown()+"\n")
		return err
	})
}

func appendToEnvFile(envVar string, write func(io.Writer) error) error {
	path := os.Getenv(envVar)
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s file: %v", envVar, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s file: %v", envVar, err)
	}
	return f.Close()
}
