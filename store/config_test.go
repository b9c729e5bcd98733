package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflowkit/reflow/store"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := store.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, store.DefaultConfig(), cfg)
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("REFLOW_OBSERVE_BUFFER", "4")

	cfg, err := store.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ObserveBuffer)
}

func TestFromEnv_ZeroIsNormalized(t *testing.T) {
	t.Setenv("REFLOW_OBSERVE_BUFFER", "0")

	cfg, err := store.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ObserveBuffer)
}

func TestFromEnv_Malformed(t *testing.T) {
	t.Setenv("REFLOW_OBSERVE_BUFFER", "not-a-number")

	_, err := store.FromEnv()
	assert.Error(t, err)
}
