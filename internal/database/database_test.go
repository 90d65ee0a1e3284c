package database

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "failed", StateFailed.String())
}

func TestDatabaseBeforeConnect(t *testing.T) {
	conn := New("mongodb://localhost:27017", "savelife", zerolog.Nop())

	assert.Equal(t, StateDisconnected, conn.State())

	_, err := conn.Database()
	assert.Error(t, err)

	// Disconnect on a never-connected handle is a no-op.
	assert.NoError(t, conn.Disconnect(context.Background()))
	assert.Equal(t, StateDisconnected, conn.State())
}
