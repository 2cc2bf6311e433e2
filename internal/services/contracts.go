// Package services: outward contracts.
//
// The core consumes the chat platforms, the curator group, and the sticker
// pipeline exclusively through the small interfaces in this file. Wire
// formats and retries belong to the adapters implementing them; the core
// treats every call as fire-and-forget with a bounded timeout and never
// retries on its own.
package services

import (
	"context"
	"time"
)

// Notifier delivers platform-bound messages. Implementations live in the
// platform adapters; the core only distinguishes "send" from "replace".
type Notifier interface {
	// Message sends text to a chat target. Fire-and-forget; may fail.
	Message(ctx context.Context, target, text string) error
	// Edit replaces the text of the target's last bot message. Idempotent.
	Edit(ctx context.Context, target, text string) error
}

// CuratorSource resolves the moderation group to its member identities.
// Results may be stale up to the caller's TTL.
type CuratorSource interface {
	Curators(ctx context.Context, groupRef string) ([]string, error)
}

// StickerRenderer turns a phrase text into sticker image bytes.
// Deterministic for the same text; pure.
type StickerRenderer interface {
	Generate(ctx context.Context, text string) ([]byte, error)
}

// StickerUploader publishes rendered sticker bytes into a platform pack and
// returns the platform's sticker reference.
type StickerUploader interface {
	Publish(ctx context.Context, img []byte, packTemplate string) (string, error)
}

// Clock abstracts time for the badge predicates that depend on the local
// hour and for link-token expiry, so tests can pin the moment.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }
