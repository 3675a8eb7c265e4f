// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Endpoint describes a credentialed package-feed registration. Name is the
// repository name visible to the registry client; Secret is the feed API key
// and is only ever passed to child processes through the environment.
type Endpoint struct {
	Name    string
	URI     string
	Owner   string
	Secret  string
	Trusted bool
}

// EphemeralName derives a collision-free repository name for a single
// operation. Concurrent invocations get distinct names and do not collide.
func EphemeralName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// RegistrationError reports a failed repository registration. It is fatal to
// the tier that attempted it.
type RegistrationError struct {
	Name string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register repository %s: %v", e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// WithEphemeral registers ep, runs fn, and unregisters ep on every exit
// path. Unregister failures are logged, never returned, so they cannot mask
// the operation's own result.
func WithEphemeral(c Client, ep Endpoint, fn func() error) error {
	if err := c.RegisterRepository(ep); err != nil {
		return &RegistrationError{Name: ep.Name, Err: err}
	}
	defer func() {
		if err := c.UnregisterRepository(ep.Name); err != nil {
			log.Printf("warning: failed to unregister repository %s: %v", ep.Name, err)
		}
	}()
	return fn()
}
