// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package push delivers notifications to user devices. Delivery is best
// effort: failures are reported to the caller for logging but never retried.
package push

import (
	"context"

	"github.com/sapcc/go-bits/logg"
)

// Sender delivers one notification to one device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// NopSender logs instead of sending. It serves deployments without push
// credentials.
type NopSender struct{}

// Send implements the Sender interface.
func (NopSender) Send(_ context.Context, token, title, _ string, _ map[string]string) error {
	logg.Debug("push disabled, dropping notification %q for token %s", title, shortenToken(token))
	return nil
}

// shortenToken keeps device tokens out of logs.
func shortenToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:8] + "****"
}
