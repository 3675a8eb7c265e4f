// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Factory constructs an external command. Orchestrators hold a Factory
// instead of calling exec.Command directly so tests can substitute a
// recording fake.
type Factory func(name string, arg ...string) *exec.Cmd

func NewStdCmd(name string, arg ...string) *exec.Cmd {
	cmd := exec.Command(name, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// Run executes cmd and folds its combined output into the returned error.
// Output streams are always replaced with a capture buffer, so commands from
// any factory work, preassigned streams included.
func Run(cmd *exec.Cmd) error {
	var buf strings.Builder
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(buf.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", cmd.Args[0], err)
		}
		return fmt.Errorf("%s: %w: %s", cmd.Args[0], err, msg)
	}
	return nil
}

// Output executes cmd and returns its trimmed stdout. Stderr is folded
// into the error on failure. Like Run, it replaces any preassigned streams.
func Output(cmd *exec.Cmd) (string, error) {
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errBuf.String())
		if msg == "" {
			return "", fmt.Errorf("%s: %w", cmd.Args[0], err)
		}
		return "", fmt.Errorf("%s: %w: %s", cmd.Args[0], err, msg)
	}
	return strings.TrimSpace(outBuf.String()), nil
}
