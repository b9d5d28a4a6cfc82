package tiers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGateLoadsEmbeddedCatalog(t *testing.T) {
	t.Parallel()

	gate, err := NewGate()
	require.NoError(t, err)

	for _, id := range []string{"free", "pro", "enterprise"} {
		_, ok := gate.Tier(id)
		require.True(t, ok, "tier %s missing", id)
	}

	_, ok := gate.Tier("platinum")
	require.False(t, ok)
}

func TestEnabledPerTier(t *testing.T) {
	t.Parallel()

	gate, err := NewGate()
	require.NoError(t, err)

	enabled, err := gate.Enabled("free", FeatureSEPA)
	require.NoError(t, err)
	require.False(t, enabled)

	enabled, err = gate.Enabled("pro", FeatureSEPA)
	require.NoError(t, err)
	require.True(t, enabled)

	enabled, err = gate.Enabled("pro", FeatureBankImport)
	require.NoError(t, err)
	require.False(t, enabled)

	enabled, err = gate.Enabled("enterprise", FeatureBankImport)
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestEnabledUnknownFeatureFailsFast(t *testing.T) {
	t.Parallel()

	gate, err := NewGate()
	require.NoError(t, err)

	_, err = gate.Enabled("pro", Feature("teleportEnabled"))
	require.ErrorIs(t, err, ErrUnknownFeature)
}

func TestEnabledUnknownTier(t *testing.T) {
	t.Parallel()

	gate, err := NewGate()
	require.NoError(t, err)

	_, err = gate.Enabled("platinum", FeatureSEPA)
	require.ErrorIs(t, err, ErrUnknownTier)
}

func TestNewGateRejectsInvalidCatalog(t *testing.T) {
	t.Parallel()

	_, err := newGateFrom([]byte(`{"tiers":[{"id":"free","name":"Free"}]}`))
	require.Error(t, err)

	_, err = newGateFrom([]byte(`{"tiers":[]}`))
	require.Error(t, err)
}
