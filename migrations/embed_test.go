// AngelaMos | 2026
// embed_test.go

package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMigration(t *testing.T) {
	raw, err := fs.ReadFile(FS, "00001_init.sql")
	require.NoError(t, err)
	sql := string(raw)

	assert.True(t, strings.HasPrefix(sql, "-- +goose Up"))
	assert.Contains(t, sql, "-- +goose Down")

	// emails of soft deleted identities can register again
	assert.Contains(t, sql,
		"CREATE UNIQUE INDEX users_email_key ON users (LOWER(email)) WHERE deleted_at IS NULL;")
	assert.Contains(t, sql, "UNIQUE (student_id, batch_id)")

	// refresh chains remember the portal they were opened through
	assert.Contains(t, sql, "CHECK (portal IN ('any', 'student', 'admin'))")
	assert.NotContains(t, sql, "is_used")
}
