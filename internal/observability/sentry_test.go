package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSentry_EmptyDSNDisables(t *testing.T) {
	require.NoError(t, InitSentry("", "test"))
	assert.False(t, enabled)

	assert.NotPanics(t, func() {
		CaptureError(context.Background(), errors.New("boom"), map[string]string{"path": "/x"})
		CapturePanic(context.Background(), "boom", []byte("stack"))
		FlushSentry()
	})
}

func TestInitSentry_InvalidDSN(t *testing.T) {
	err := InitSentry("::not-a-dsn", "test")
	require.Error(t, err)
	assert.False(t, enabled)
}
