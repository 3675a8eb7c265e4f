// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Session is an explicit capability context. Each pwsh invocation is a fresh
// process, so commands exported by an imported module are not visible to
// later invocations on their own; Session accumulates imports and replays
// them ahead of every script so later steps see everything earlier steps
// imported.
type Session struct {
	run     func(script string) (string, error)
	imports []string
	env     []string
}

// SetEnv exposes a variable to every subsequent invocation in this session.
// Secrets travel this way, never through script text.
func (s *Session) SetEnv(key, value string) {
	s.env = append(s.env, key+"="+value)
}

// Environ returns the extra variables set on this session.
func (s *Session) Environ() []string {
	return append([]string(nil), s.env...)
}

// NewSessionWithRunner builds a session over an arbitrary script runner.
// Production code gets sessions from PwshClient.NewSession; tests inject a
// scripted runner here.
func NewSessionWithRunner(run func(script string) (string, error)) *Session {
	return &Session{run: run}
}

func (s *Session) prelude() string {
	var b strings.Builder
	for _, m := range s.imports {
		fmt.Fprintf(&b, "Import-Module %s -Force; ", Quote(m))
	}
	return b.String()
}

// Import validates that module loads and records it so every subsequent
// Invoke sees its exported commands.
func (s *Session) Import(module string) error {
	if _, err := s.run(s.prelude() + "Import-Module " + Quote(module) + " -Force"); err != nil {
		return fmt.Errorf("import module %s: %w", module, err)
	}
	s.imports = append(s.imports, module)
	return nil
}

// Imports returns the modules imported so far, in order.
func (s *Session) Imports() []string {
	return append([]string(nil), s.imports...)
}

// Invoke runs script with all recorded imports in scope and returns its
// trimmed output.
func (s *Session) Invoke(script string) (string, error) {
	return s.run(s.prelude() + script)
}

// InvokeJSON runs script, asking pwsh to serialize its result, and decodes
// it into v.
func (s *Session) InvokeJSON(script string, v any) error {
	out, err := s.Invoke(script + " | ConvertTo-Json -Depth 8 -Compress")
	if err != nil {
		return err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return fmt.Errorf("empty result from: %s", script)
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		return fmt.Errorf("decode result from %s: %w", script, err)
	}
	return nil
}

// HasCommand probes whether a command is resolvable in this session.
func (s *Session) HasCommand(name string) bool {
	out, err := s.Invoke("(Get-Command " + Quote(name) + " -ErrorAction SilentlyContinue).Name")
	return err == nil && strings.TrimSpace(out) != ""
}
