package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/meditactive/pkg/catalog"
	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
	"github.com/ha1tch/meditactive/pkg/storage/storagetest"
)

func TestResolveGoal(t *testing.T) {
	db := storagetest.NewSQLite(t)
	r := catalog.NewResolver(0, 0)
	ctx := context.Background()

	tests := []struct {
		name  string
		ref   models.CatalogRef
		ok    bool
		title string
	}{
		{"by id", models.IDRef(2), true, "Muscle Gain"},
		{"by name", "Endurance", true, "Endurance"},
		{"name is case sensitive", "endurance", false, ""},
		{"unknown id", models.IDRef(999), false, ""},
		{"unknown name", "Juggling", false, ""},
		{"zero is not an id", "0", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ok, err := r.ResolveGoal(ctx, db, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.title, g.Title)
		})
	}
}

func TestResolveNumericNameFallback(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)
	ctx := context.Background()

	// A goal whose title looks like an id that does not exist
	require.NoError(t, storage.SeedCatalog(ctx, db, []string{"Alpha", "42"}, nil))

	r := catalog.NewResolver(0, 0)
	g, ok, err := r.ResolveGoal(ctx, db, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", g.Title)

	// Ids win over names when both could match
	g, ok, err = r.ResolveGoal(ctx, db, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alpha", g.Title)
}

func TestResolveSessionType(t *testing.T) {
	db := storagetest.NewSQLite(t)
	r := catalog.NewResolver(0, 0)
	ctx := context.Background()

	st, ok, err := r.ResolveSessionType(ctx, db, "1 day")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1440, st.DurationMinutes)
	assert.Equal(t, 24*time.Hour, st.Duration())

	st, ok, err = r.ResolveSessionType(ctx, db, models.IDRef(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1 hour", st.Name)

	_, ok, err = r.ResolveSessionType(ctx, db, "1 century")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveGoals(t *testing.T) {
	db := storagetest.NewSQLite(t)
	r := catalog.NewResolver(0, 0)

	res, err := r.ResolveGoals(context.Background(), db, []models.CatalogRef{
		"Muscle Gain", "Weight Loss", models.IDRef(2), "Nope", "Weight Loss", models.IDRef(77),
	})
	require.NoError(t, err)

	require.Len(t, res.Goals, 2)
	assert.Equal(t, "Muscle Gain", res.Goals[0].Title)
	assert.Equal(t, "Weight Loss", res.Goals[1].Title)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, models.CatalogRef("Nope"), res.Skipped[0].Ref)
	assert.Equal(t, models.IDRef(77), res.Skipped[1].Ref)
}

func TestResolverCache(t *testing.T) {
	db := storagetest.NewSQLite(t)
	r := catalog.NewResolver(8, time.Minute)
	ctx := context.Background()

	g, ok, err := r.ResolveGoal(ctx, db, "Flexibility")
	require.NoError(t, err)
	require.True(t, ok)

	// Served from cache once the pool is gone
	require.NoError(t, db.Close())
	cached, ok, err := r.ResolveGoal(ctx, db, "Flexibility")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g, cached)
}

func TestListCatalog(t *testing.T) {
	db := storagetest.NewSQLite(t)
	r := catalog.NewResolver(0, 0)
	ctx := context.Background()

	goals, err := r.ListGoals(ctx, db)
	require.NoError(t, err)
	require.Len(t, goals, len(storage.DefaultGoals))
	assert.Equal(t, storage.DefaultGoals[0], goals[0].Title)

	types, err := r.ListSessionTypes(ctx, db)
	require.NoError(t, err)
	require.Len(t, types, len(storage.DefaultSessionTypes))
	assert.Equal(t, 10080, types[2].DurationMinutes)
}
