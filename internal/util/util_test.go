package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerAddsRoomIDFieldWhenPresent(t *testing.T) {
	ctx := WithRoomID(context.Background(), "!room:example.org")
	entry := Logger(ctx)
	assert.Equal(t, "!room:example.org", entry.Data["room_id"])
}

func TestLoggerOmitsRoomIDFieldWhenAbsent(t *testing.T) {
	entry := Logger(context.Background())
	_, ok := entry.Data["room_id"]
	assert.False(t, ok)
}

func TestLoggerOmitsRoomIDFieldWhenEmpty(t *testing.T) {
	ctx := WithRoomID(context.Background(), "")
	entry := Logger(ctx)
	_, ok := entry.Data["room_id"]
	assert.False(t, ok)
}

func TestRandomLocalIDProducesDistinctNonEmptyValues(t *testing.T) {
	a := RandomLocalID()
	b := RandomLocalID()
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
