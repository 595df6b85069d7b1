// Package reconcile maps remote catalog representations onto the local
// store. Each reconciler takes a batch of remote DTOs and applies
// replace-on-primary-key upserts; a single bad entity is skipped and
// the batch continues. Identity correlation between the remote service
// and the local store runs on email, never on numeric ids — the two
// sides assign ids independently.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"

	"github.com/mobiletoly/go-marketsync/remotegw"
)

// DuplicateEmailError reports two remote merchant records sharing one
// email. Reconciliation by email would be ambiguous, so every record
// with that email is skipped and the conflict is surfaced instead of
// silently picking one.
type DuplicateEmailError struct {
	Email string
	Count int
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("reconcile: %d remote merchants share email %q, skipping all of them", e.Count, e.Email)
}

// ambiguousEmails returns the non-blank emails carried by more than
// one DTO in the batch, with their counts. Account derivation and
// merchant upsert both consult it, so a record skipped as ambiguous on
// one path is skipped on the other as well.
func ambiguousEmails(dtos []remotegw.MerchantDTO) map[string]int {
	seen := make(map[string]int, len(dtos))
	for _, dto := range dtos {
		if dto.Email != "" {
			seen[dto.Email]++
		}
	}
	dup := make(map[string]int)
	for email, n := range seen {
		if n > 1 {
			dup[email] = n
		}
	}
	return dup
}
