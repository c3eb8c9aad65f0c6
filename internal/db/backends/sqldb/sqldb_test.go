package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/recordsdir/directory-backend/internal/db/entities"
	"github.com/recordsdir/directory-backend/internal/db/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	db := NewDatabase(Config{
		Dialect: SQLite,
		DSN:     filepath.Join(t.TempDir(), "directory.db"),
	}, zaptest.NewLogger(t).Sugar())

	require.NoError(t, db.Connect(ctx))
	t.Cleanup(func() { db.Disconnect(ctx) })
	require.NoError(t, db.Migrate(ctx, []*interfaces.Schema{entities.CountrySchema, entities.PersonSchema}))
	return db
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = ParseDialect("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDatabase(t)
	assert.NoError(t, db.Migrate(context.Background(), nil))
	assert.True(t, db.IsHealthy(context.Background()))
}

func TestMigrationProviderStatus(t *testing.T) {
	ctx := context.Background()
	provider, err := newTestDatabase(t).MigrationProvider()
	require.NoError(t, err)

	statuses, err := provider.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.Equal(t, goose.StateApplied, s.State, s.Source.Path)
	}

	version, err := provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestCountryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestDatabase(t).Repository(entities.CountrySchema)

	created, err := repo.Create(ctx, map[string]interface{}{"name": "Egypt"})
	require.NoError(t, err)
	id, ok := created["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	got, err := repo.GetByID(ctx, interfaces.StringID(id))
	require.NoError(t, err)
	assert.Equal(t, "Egypt", got["name"])
	assert.IsType(t, time.Time{}, got["created_at"])

	_, err = repo.Create(ctx, map[string]interface{}{"name": "Egypt"})
	assert.True(t, errors.Is(err, interfaces.ErrUniqueConstraint), "got %v", err)

	updated, err := repo.Update(ctx, interfaces.StringID(id), map[string]interface{}{"name": "Arab Republic of Egypt"})
	require.NoError(t, err)
	assert.Equal(t, "Arab Republic of Egypt", updated["name"])

	require.NoError(t, repo.Delete(ctx, interfaces.StringID(id)))
	assert.ErrorIs(t, repo.Delete(ctx, interfaces.StringID(id)), interfaces.ErrNotFound)

	_, err = repo.GetByID(ctx, interfaces.StringID(id))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = repo.Update(ctx, interfaces.StringID(id), map[string]interface{}{"name": "Gone"})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestPersonRoundTripsNullableColumns(t *testing.T) {
	ctx := context.Background()
	repo := newTestDatabase(t).Repository(entities.PersonSchema)

	dob := time.Date(1995, time.March, 14, 0, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, map[string]interface{}{
		"name":          "eslam",
		"email":         "eslam@example.com",
		"date_of_birth": dob,
		"gender":        "Male",
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, interfaces.StringID(created["id"].(string)))
	require.NoError(t, err)
	assert.Equal(t, "eslam", got["name"])
	assert.True(t, dob.Equal(got["date_of_birth"].(time.Time)))
	assert.Equal(t, "Male", got["gender"])
	assert.Nil(t, got["country_id"])
	assert.Nil(t, got["address"])
	assert.Equal(t, false, got["receive_newsletters"])
}

func TestFindManyQueries(t *testing.T) {
	ctx := context.Background()
	repo := newTestDatabase(t).Repository(entities.PersonSchema)

	for _, p := range []map[string]interface{}{
		{"name": "solom", "email": "solom@example.com", "address": "Cairo", "receive_newsletters": true},
		{"name": "eslam", "email": "eslam@example.com", "receive_newsletters": false},
		{"name": "Essam", "email": "essam@example.com", "address": "Giza", "receive_newsletters": true},
	} {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}

	t.Run("insertion order by default", func(t *testing.T) {
		page, err := repo.FindMany(ctx, nil)
		require.NoError(t, err)
		require.Len(t, page.Data, 3)
		assert.Equal(t, []interface{}{"solom", "eslam", "Essam"}, names(page))
	})

	t.Run("equality", func(t *testing.T) {
		page, err := repo.FindMany(ctx, &interfaces.Query{
			Where: &interfaces.Filters{Conditions: []interfaces.Filter{{Field: "receive_newsletters", Value: true}}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("case-insensitive contains", func(t *testing.T) {
		insensitive := false
		page, err := repo.FindMany(ctx, &interfaces.Query{
			Where: &interfaces.Filters{Conditions: []interfaces.Filter{{
				Field:    "name",
				Operator: &interfaces.FilterOperator{Like: "es", CaseSensitive: &insensitive},
			}}},
		})
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"eslam", "Essam"}, names(page))
	})

	t.Run("is null", func(t *testing.T) {
		page, err := repo.FindMany(ctx, &interfaces.Query{
			Where: &interfaces.Filters{Conditions: []interfaces.Filter{{
				Field:    "address",
				Operator: &interfaces.FilterOperator{IsNull: true},
			}}},
		})
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"eslam"}, names(page))
	})

	t.Run("or", func(t *testing.T) {
		page, err := repo.FindMany(ctx, &interfaces.Query{
			Where: &interfaces.Filters{OR: []*interfaces.Filters{
				{Conditions: []interfaces.Filter{{Field: "name", Value: "solom"}}},
				{Conditions: []interfaces.Filter{{Field: "address", Value: "Giza"}}},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"solom", "Essam"}, names(page))
	})

	t.Run("sort and paginate", func(t *testing.T) {
		limit, offset := 1, 1
		page, err := repo.FindMany(ctx, &interfaces.Query{
			OrderBy: []interfaces.OrderBy{{Field: "email", Direction: interfaces.Desc}},
			Limit:   &limit,
			Offset:  &offset,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, []interface{}{"Essam"}, names(page))
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := repo.FindMany(ctx, &interfaces.Query{
			OrderBy: []interfaces.OrderBy{{Field: "name; DROP TABLE persons", Direction: interfaces.Asc}},
		})
		assert.ErrorIs(t, err, interfaces.ErrInvalidQuery)
	})

	t.Run("count", func(t *testing.T) {
		n, err := repo.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := db.Repository(entities.CountrySchema)

	err := db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		_, err := repo.Create(ctx, map[string]interface{}{"name": "Germany"})
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		if _, err := repo.Create(ctx, map[string]interface{}{"name": "Japan"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	page, err := repo.FindMany(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Germany"}, names(page))
}

func TestDisconnectedDatabase(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(Config{Dialect: SQLite, DSN: ":memory:"}, nil)

	assert.False(t, db.IsHealthy(ctx))
	_, err := db.Repository(entities.CountrySchema).FindMany(ctx, nil)
	assert.ErrorIs(t, err, interfaces.ErrDatabaseNotConnected)
}

func names(page *interfaces.ResultPage) []interface{} {
	out := make([]interface{}, 0, len(page.Data))
	for _, rec := range page.Data {
		out = append(out, rec["name"])
	}
	return out
}
