package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	batch := Batch{Entities: NewEntitySet("thing;a"), SkipDelete: true}

	t.Run("Short budget with cursor", func(t *testing.T) {
		cfg := testConfig("Test::Thing")
		res := Decide(100, 5000, strp("tok123"), cfg, batch)

		require.NotNil(t, res.NextResourceConfig)
		require.NotNil(t, res.NextResourceConfig.NextToken)
		assert.Equal(t, "tok123", *res.NextResourceConfig.NextToken)
		assert.Nil(t, cfg.NextToken, "input config is not mutated")
		assert.True(t, res.SkipDelete)
		assert.Equal(t, []string{"thing;a"}, res.Entities.Sorted())
	})

	t.Run("Enough budget", func(t *testing.T) {
		res := Decide(60000, 5000, strp("tok123"), testConfig("Test::Thing"), batch)
		assert.Nil(t, res.NextResourceConfig)
		assert.True(t, res.SkipDelete)
	})

	t.Run("Short budget without cursor clears stale token", func(t *testing.T) {
		cfg := testConfig("Test::Thing")
		cfg.NextToken = strp("stale")
		res := Decide(100, 5000, nil, cfg, batch)

		require.NotNil(t, res.NextResourceConfig)
		assert.Nil(t, res.NextResourceConfig.NextToken)
		assert.Equal(t, "Test::Thing", res.NextResourceConfig.Kind)
		assert.Equal(t, "stale", *cfg.NextToken)
	})

	t.Run("Boundary is not short", func(t *testing.T) {
		res := Decide(5000, 5000, strp("tok"), testConfig("Test::Thing"), Batch{})
		assert.Nil(t, res.NextResourceConfig)
		assert.NotNil(t, res.Entities)
	})
}

func TestDeadlineBudget(t *testing.T) {
	now := time.Unix(1000, 0)
	b := DeadlineBudget{Deadline: now.Add(90 * time.Second), Now: func() time.Time { return now }}
	assert.Equal(t, int64(90000), b.RemainingBudgetMillis())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, int64(0), b.RemainingBudgetMillis())

	live := NewDeadlineBudget(time.Hour)
	assert.Greater(t, live.RemainingBudgetMillis(), int64(3500_000))
}

func TestStaticBudget(t *testing.T) {
	assert.Equal(t, int64(42), StaticBudget(42).RemainingBudgetMillis())
}
