package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noema/hlr/core/model"
	hlrErrors "github.com/noema/hlr/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testCheckpoint(scope string) *model.Checkpoint {
	cp := model.NewCheckpoint(scope, model.Hyperparameters{
		LearningRate:   0.001,
		HalfLifeWeight: 0.01,
		L2Weight:       0.1,
		Sigma:          1,
	}, map[string]float64{"bias": 0.25, "right": -0.5}, map[string]int{"bias": 3, "right": 1})
	cp.Observations = 3
	return cp
}

func TestSaveLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cp := testCheckpoint("user-1")
	require.NoError(t, s.Save(ctx, cp))

	got, err := s.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cp.Weights, got.Weights)
	assert.Equal(t, cp.FeatureCounts, got.FeatureCounts)
	assert.Equal(t, cp.Observations, got.Observations)
	assert.Equal(t, cp.Hash(), got.Hash())
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cp := testCheckpoint("global")
	require.NoError(t, s.Save(ctx, cp))

	cp.Weights["bias"] = 1.5
	require.NoError(t, s.Save(ctx, cp))

	got, err := s.Load(ctx, "global")
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.Weights["bias"])
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), "nobody")
	assert.True(t, errors.Is(err, hlrErrors.ErrNotFound))
}

func TestSaveRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	cp := testCheckpoint("bad")
	cp.Weights["x"] = math.NaN()

	err := s.Save(context.Background(), cp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hlrErrors.ErrNonFinite))

	_, err = s.Load(context.Background(), "bad")
	assert.True(t, errors.Is(err, hlrErrors.ErrNotFound))
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, scope := range []string{"zeta", "alpha", "global"} {
		require.NoError(t, s.Save(ctx, testCheckpoint(scope)))
	}

	scopes, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "global", "zeta"}, scopes)

	require.NoError(t, s.Delete(ctx, "global"))
	assert.True(t, errors.Is(s.Delete(ctx, "global"), hlrErrors.ErrNotFound))

	scopes, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, scopes)
}

func TestCanceledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, testCheckpoint("x")), context.Canceled)
	_, err := s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, false)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testCheckpoint("user-7")))
	require.NoError(t, s.Close())

	s, err = Open(dir, false)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Load(ctx, "user-7")
	require.NoError(t, err)
	assert.Equal(t, -0.5, got.Weights["right"])
}
