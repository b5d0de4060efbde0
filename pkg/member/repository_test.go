package member_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/meditactive/pkg/member"
	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
	"github.com/ha1tch/meditactive/pkg/storage/storagetest"
)

func strPtr(s string) *string { return &s }

func setupRepo(t *testing.T) (*member.Repository, *storage.DB) {
	t.Helper()
	return member.NewRepository(), storagetest.NewEmptySQLite(t)
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, db, models.MemberFields{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Goal: strPtr("run"),
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	got, err := repo.Get(ctx, db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	require.NotNil(t, got.Goal)
	assert.Equal(t, "run", *got.Goal)
}

func TestRepository_GetNotFound(t *testing.T) {
	repo, db := setupRepo(t)

	_, err := repo.Get(context.Background(), db, 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepository_DuplicateEmail(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, db, models.MemberFields{FirstName: "A", LastName: "B", Email: "a@b.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, db, models.MemberFields{FirstName: "C", LastName: "D", Email: "a@b.com"})
	assert.ErrorIs(t, err, storage.ErrDuplicateIdentity)

	// Byte-exact comparison: a different case is a different email
	_, err = repo.Create(ctx, db, models.MemberFields{FirstName: "C", LastName: "D", Email: "A@b.com"})
	assert.NoError(t, err)

	n, err := repo.Count(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRepository_UpdatePartial(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	m, err := repo.Create(ctx, db, models.MemberFields{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Goal: strPtr("swim"),
	})
	require.NoError(t, err)

	t.Run("only present fields change", func(t *testing.T) {
		got, err := repo.UpdatePartial(ctx, db, m.ID, models.MemberPatch{
			LastName: models.Some("King"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.FirstName)
		assert.Equal(t, "King", got.LastName)
		assert.Equal(t, "ada@example.com", got.Email)
		require.NotNil(t, got.Goal)
		assert.Equal(t, "swim", *got.Goal)
	})

	t.Run("null clears goal", func(t *testing.T) {
		got, err := repo.UpdatePartial(ctx, db, m.ID, models.MemberPatch{Goal: models.Null[string]()})
		require.NoError(t, err)
		assert.Nil(t, got.Goal)
	})

	t.Run("null on required column", func(t *testing.T) {
		_, err := repo.UpdatePartial(ctx, db, m.ID, models.MemberPatch{FirstName: models.Null[string]()})
		assert.ErrorIs(t, err, member.ErrRequiredField)
	})

	t.Run("own email is not a duplicate", func(t *testing.T) {
		_, err := repo.UpdatePartial(ctx, db, m.ID, models.MemberPatch{Email: models.Some("ada@example.com")})
		assert.NoError(t, err)
	})

	t.Run("taken email", func(t *testing.T) {
		_, err := repo.Create(ctx, db, models.MemberFields{FirstName: "G", LastName: "H", Email: "grace@example.com"})
		require.NoError(t, err)

		_, err = repo.UpdatePartial(ctx, db, m.ID, models.MemberPatch{Email: models.Some("grace@example.com")})
		assert.ErrorIs(t, err, storage.ErrDuplicateIdentity)
	})

	t.Run("missing member", func(t *testing.T) {
		_, err := repo.UpdatePartial(ctx, db, 9999, models.MemberPatch{FirstName: models.Some("X")})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestRepository_DeleteAndExists(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	m, err := repo.Create(ctx, db, models.MemberFields{FirstName: "A", LastName: "B", Email: "a@b.com"})
	require.NoError(t, err)

	exists, err := repo.Exists(ctx, db, m.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, db, m.ID))

	exists, err = repo.Exists(ctx, db, m.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, repo.Delete(ctx, db, m.ID), storage.ErrNotFound)
}

func TestRepository_List(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := repo.Create(ctx, db, models.MemberFields{
			FirstName: "Member", LastName: "Paged", Email: fmt.Sprintf("m%02d@example.com", i),
		})
		require.NoError(t, err)
	}

	t.Run("first page ordered by id", func(t *testing.T) {
		page, err := repo.List(ctx, db, 5, 0)
		require.NoError(t, err)
		require.Len(t, page, 5)
		for i := 1; i < len(page); i++ {
			assert.Less(t, page[i-1].ID, page[i].ID)
		}
		assert.Equal(t, "m00@example.com", page[0].Email)
	})

	t.Run("offset", func(t *testing.T) {
		page, err := repo.List(ctx, db, 5, 10)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "m10@example.com", page[0].Email)
	})

	t.Run("offset past the end", func(t *testing.T) {
		page, err := repo.List(ctx, db, 5, 50)
		require.NoError(t, err)
		assert.NotNil(t, page)
		assert.Empty(t, page)
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		page, err := repo.List(ctx, db, 0, -3)
		require.NoError(t, err)
		assert.Len(t, page, member.DefaultListLimit)
		assert.Equal(t, "m00@example.com", page[0].Email)
	})
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, member.DefaultListLimit, 0},
		{-1, -1, member.DefaultListLimit, 0},
		{1, 5, 1, 5},
		{100, 0, 100, 0},
		{101, 0, member.MaxListLimit, 0},
		{1000, 7, member.MaxListLimit, 7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.limit, tt.offset), func(t *testing.T) {
			limit, offset := member.ClampPage(tt.limit, tt.offset)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
