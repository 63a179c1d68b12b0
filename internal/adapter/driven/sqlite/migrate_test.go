package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_CreatesSchemaVersion1(t *testing.T) {
	db := openTestDB(t)
	t.Cleanup(func() { _ = db.Close() })

	version, err := CurrentVersion(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	require.NoError(t, RunMigrations(context.Background(), db.Writer))

	version, err = CurrentVersion(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(SchemaVersion), version)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	assert.NoError(t, RunMigrations(context.Background(), db.Writer))
	assert.NoError(t, RunMigrations(context.Background(), db.Writer))
}

func TestRunMigrations_ContextDone(t *testing.T) {
	db := openTestDB(t)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunMigrations(ctx, db.Writer)
	require.ErrorIs(t, err, context.Canceled)

	version, err := CurrentVersion(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestRunMigrations_WithinDeadline(t *testing.T) {
	db := openTestDB(t)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, RunMigrations(ctx, db.Writer))

	version, err := CurrentVersion(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(SchemaVersion), version)
}
