package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicpulse/quicpulse/internal/config"
)

func TestNew_SQLiteRecordAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := New(ctx, config.History{Driver: "sqlite", Datasource: filepath.Join(dir, "history.db")})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(ctx, Record{
		WorkflowName: "smoke",
		StepName:     "create_user",
		Method:       "POST",
		URL:          "https://api.example.com/users",
		StatusCode:   201,
		Success:      true,
		StartedAt:    time.Now(),
		DurationMs:   42,
	}))
	require.NoError(t, store.Record(ctx, Record{
		WorkflowName: "smoke",
		StepName:     "get_user",
		Method:       "GET",
		URL:          "https://api.example.com/users/1",
		StatusCode:   200,
		Success:      true,
		StartedAt:    time.Now(),
		DurationMs:   12,
	}))
	require.NoError(t, store.Record(ctx, Record{
		WorkflowName: "other",
		StepName:     "ping",
		Method:       "GET",
		URL:          "https://api.example.com/health",
		StatusCode:   200,
		Success:      true,
		StartedAt:    time.Now(),
		DurationMs:   3,
	}))

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	smokeOnly, err := store.List(ctx, Filter{WorkflowName: "smoke"})
	require.NoError(t, err)
	assert.Len(t, smokeOnly, 2)

	limited, err := store.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNew_UnknownDriverErrors(t *testing.T) {
	_, err := New(context.Background(), config.History{Driver: "mysql"})
	assert.Error(t, err)
}
