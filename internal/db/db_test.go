package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/quotes?sslmode=disable", MigrateURL("postgres://u:p@localhost:5432/quotes?sslmode=disable"))
	require.Equal(t, "pgx5://db/quotes", MigrateURL("postgresql://db/quotes"))
	require.Equal(t, "pgx5://db/quotes", MigrateURL("pgx5://db/quotes"))
}

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	up, down := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			up[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			down[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, up)
	require.Equal(t, up, down)
}
