// AngelaMos | 2026
// repository_test.go

package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/examprep/internal/core"
)

// recordingDB captures GetContext calls. Any other method panics through the
// nil embedded interface.
type recordingDB struct {
	core.DBTX

	queries []string
	args    [][]any
	count   int
	exists  bool
}

func (d *recordingDB) GetContext(_ context.Context, dest any, query string, args ...any) error {
	d.queries = append(d.queries, query)
	d.args = append(d.args, args)

	switch v := dest.(type) {
	case *int:
		*v = d.count
	case *bool:
		*v = d.exists
	}
	return nil
}

func TestRepository_SoftDeleteDropsProfile(t *testing.T) {
	db := &recordingDB{count: 1}
	repo := NewRepository(db)

	require.NoError(t, repo.SoftDelete(context.Background(), "u1"))

	require.Len(t, db.queries, 1, "user and profile go in one statement")
	assert.Contains(t, db.queries[0], "UPDATE users")
	assert.Contains(t, db.queries[0], "DELETE FROM student_profiles")
	assert.Equal(t, []any{"u1"}, db.args[0])
}

func TestRepository_SoftDeleteMissing(t *testing.T) {
	repo := NewRepository(&recordingDB{count: 0})

	err := repo.SoftDelete(context.Background(), "gone")

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_LookupsSkipDeletedIdentities(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		lookup func(Repository) (bool, error)
	}{
		{"student profile fallback", func(r Repository) (bool, error) {
			return r.StudentProfileExists(ctx, "s@x.com")
		}},
		{"email exists", func(r Repository) (bool, error) {
			return r.ExistsByEmail(ctx, "s@x.com")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &recordingDB{exists: true}

			ok, err := tt.lookup(NewRepository(db))
			require.NoError(t, err)
			assert.True(t, ok)

			require.Len(t, db.queries, 1)
			assert.Contains(t, db.queries[0], "deleted_at IS NULL")
		})
	}
}
