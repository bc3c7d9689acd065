// Package util collects the small, cross-cutting helpers shared between the
// core resolution packages and the cmd/stateresd binary: context-scoped
// logging and local event id generation.
package util

import (
	"context"

	matrixutil "github.com/matrix-org/util"
	"github.com/sirupsen/logrus"
)

// ctxKeyRoomID is the context key the debug HTTP server attaches a room id
// under before calling into the core, so every log line emitted during a
// single resolution carries it automatically.
type ctxKeyRoomID struct{}

// WithRoomID returns a context carrying roomID for later retrieval by Logger.
func WithRoomID(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, ctxKeyRoomID{}, roomID)
}

// Logger returns a logrus entry scoped to ctx, mirroring matrix-org/util's
// per-request logger convention (dendrite attaches one per HTTP request;
// here it is attached per resolution).
func Logger(ctx context.Context) *logrus.Entry {
	entry := matrixutil.GetLogger(ctx)
	if roomID, ok := ctx.Value(ctxKeyRoomID{}).(string); ok && roomID != "" {
		entry = entry.WithField("room_id", roomID)
	}
	return entry
}

// RandomLocalID generates the random local part of a v1/v2 event id, reusing
// matrix-org/util's random string generator rather than hand-rolling one.
func RandomLocalID() string {
	return matrixutil.RandomString(16)
}
