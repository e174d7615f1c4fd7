package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftwatch/trackerd/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	return db
}
