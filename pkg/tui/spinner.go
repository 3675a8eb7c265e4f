// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tui renders single-line progress for long-running feed operations.
package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 120 * time.Millisecond

// Spinner animates a message on a single terminal line. Safe for concurrent
// Update calls.
type Spinner struct {
	out io.Writer

	mu      sync.Mutex
	msg     string
	idx     int
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{out: out}
}

func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	if s.running {
		s.msg = msg
		s.mu.Unlock()
		return
	}
	s.running = true
	s.msg = msg
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.render(0, msg)
	go s.loop()
}

func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	running := s.running
	idx := s.idx
	s.mu.Unlock()
	if running {
		s.render(idx, msg)
	}
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	fmt.Fprint(s.out, "\r\033[K")
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if !s.running {
				s.mu.Unlock()
				continue
			}
			s.idx = (s.idx + 1) % len(frames)
			idx, msg := s.idx, s.msg
			s.mu.Unlock()
			s.render(idx, msg)
		case <-s.stopCh:
			close(s.doneCh)
			return
		}
	}
}

func (s *Spinner) render(idx int, msg string) {
	line := frames[idx%len(frames)]
	if msg != "" {
		line += " " + msg
	}
	fmt.Fprintf(s.out, "\r\033[K%s", line)
}
