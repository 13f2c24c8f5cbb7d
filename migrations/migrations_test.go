package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelKMarwa/recupio/pkg/database"
)

func TestMigrationFiles_Order(t *testing.T) {
	names, err := database.MigrationFiles(FS)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"000001_accounts.up.sql",
		"000002_directory.up.sql",
		"000003_dropoffs.up.sql",
		"000004_billing.up.sql",
	}, names)
}

func TestMigrationFiles_CreateCoreTables(t *testing.T) {
	tables := map[string]string{
		"000001_accounts.up.sql":  "CREATE TABLE IF NOT EXISTS guest_sessions",
		"000002_directory.up.sql": "CREATE TABLE IF NOT EXISTS facilities",
		"000003_dropoffs.up.sql":  "CREATE TABLE IF NOT EXISTS drop_offs",
		"000004_billing.up.sql":   "CREATE TABLE IF NOT EXISTS subscriptions",
	}
	for name, want := range tables {
		t.Run(name, func(t *testing.T) {
			body, err := fs.ReadFile(FS, name)
			require.NoError(t, err)
			assert.Contains(t, string(body), want)
			assert.NotContains(t, strings.ToUpper(string(body)), "DROP TABLE")
		})
	}
}
