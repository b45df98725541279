// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package storagetest provides a sample entity and a behavioural suite that
// every storage.Repository implementation must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor/parlor/internal/storage"
)

// Note is a small entity exercising every column shape the real entities use.
type Note struct {
	ID        string
	Title     string
	Owner     string
	Pinned    bool
	Archived  *time.Time
	Tags      map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteCodec stores notes in the "notes" collection with a unique title.
var NoteCodec = storage.Codec[Note]{
	Collection: "notes",
	Fields:     []string{"title", "owner", "pinned", "archived_at", "tags"},
	Unique:     []string{"title"},
	ToRow: func(n Note) storage.Row {
		row := storage.Row{
			"title":       n.Title,
			"owner":       n.Owner,
			"pinned":      n.Pinned,
			"archived_at": storage.NullTime(n.Archived),
			"tags":        n.Tags,
		}
		if n.ID != "" {
			row[storage.FieldID] = n.ID
		}
		if !n.CreatedAt.IsZero() {
			row[storage.FieldCreatedAt] = n.CreatedAt
		}
		if !n.UpdatedAt.IsZero() {
			row[storage.FieldUpdatedAt] = n.UpdatedAt
		}
		return row
	},
	FromRow: func(row storage.Row) (Note, error) {
		if err := row.Require(storage.FieldID, "title"); err != nil {
			return Note{}, err
		}
		return Note{
			ID:        row.String(storage.FieldID),
			Title:     row.String("title"),
			Owner:     row.String("owner"),
			Pinned:    row.Bool("pinned"),
			Archived:  row.OptTime("archived_at"),
			Tags:      row.StringMap("tags"),
			CreatedAt: row.Time(storage.FieldCreatedAt),
			UpdatedAt: row.Time(storage.FieldUpdatedAt),
		}, nil
	},
}

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) storage.Repository[Note]

// Run exercises the repository contract against repositories from newRepo.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	seed := func(t *testing.T, repo storage.Repository[Note], notes ...Note) []Note {
		t.Helper()
		out := make([]Note, 0, len(notes))
		for _, n := range notes {
			created, err := repo.Create(ctx, n)
			require.NoError(t, err)
			out = append(out, created)
		}
		return out
	}

	t.Run("create assigns id and timestamps", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, Note{Title: "groceries", Owner: "alice"})
		require.NoError(t, err)

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "groceries", created.Title)
		assert.False(t, created.CreatedAt.IsZero())
		assert.False(t, created.UpdatedAt.IsZero())
	})

	t.Run("find by id returns nil for unknown id", func(t *testing.T) {
		repo := newRepo(t)
		found, err := repo.FindByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("find by id round-trips the entity", func(t *testing.T) {
		repo := newRepo(t)
		created := seed(t, repo, Note{Title: "t", Owner: "o", Tags: map[string]string{"k": "v"}})[0]

		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, map[string]string{"k": "v"}, found.Tags)
		assert.Nil(t, found.Archived)
	})

	t.Run("find one matches on every filter field", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo,
			Note{Title: "a", Owner: "alice", Pinned: true},
			Note{Title: "b", Owner: "alice"},
			Note{Title: "c", Owner: "bob", Pinned: true},
		)

		found, err := repo.FindOne(ctx, storage.Filter{"owner": "alice", "pinned": false})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "b", found.Title)

		missing, err := repo.FindOne(ctx, storage.Filter{"owner": "carol"})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("nil filter value matches null", func(t *testing.T) {
		repo := newRepo(t)
		archived := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		seed(t, repo, Note{Title: "old", Archived: &archived}, Note{Title: "new"})

		found, err := repo.FindOne(ctx, storage.Filter{"archived_at": nil})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "new", found.Title)
	})

	t.Run("find all pages and sorts", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo,
			Note{Title: "c", Owner: "x"},
			Note{Title: "a", Owner: "x"},
			Note{Title: "b", Owner: "x"},
			Note{Title: "d", Owner: "y"},
		)

		all, err := repo.FindAll(ctx, storage.Filter{"owner": "x"}, storage.FindOptions{
			Sort: []storage.Sort{{Field: "title"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, titles(all))

		page, err := repo.FindAll(ctx, storage.Filter{"owner": "x"}, storage.FindOptions{
			Skip:  1,
			Limit: 1,
			Sort:  []storage.Sort{{Field: "title", Descending: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, titles(page))

		none, err := repo.FindAll(ctx, nil, storage.FindOptions{Skip: 10})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindOne(ctx, storage.Filter{"title; DROP TABLE notes": "x"})
		require.Error(t, err)

		_, err = repo.FindAll(ctx, nil, storage.FindOptions{Sort: []storage.Sort{{Field: "nope"}}})
		require.Error(t, err)

		_, err = repo.Update(ctx, "id", storage.Patch{storage.FieldVersion: 3})
		require.Error(t, err)
	})

	t.Run("negative paging is rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindAll(ctx, nil, storage.FindOptions{Limit: -1})
		require.Error(t, err)
	})

	t.Run("update applies patch and returns the new state", func(t *testing.T) {
		repo := newRepo(t)
		created := seed(t, repo, Note{Title: "draft", Owner: "alice"})[0]

		updated, err := repo.Update(ctx, created.ID, storage.Patch{"title": "final", "pinned": true})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "final", updated.Title)
		assert.True(t, updated.Pinned)
		assert.Equal(t, "alice", updated.Owner)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("update of unknown id returns nil", func(t *testing.T) {
		repo := newRepo(t)
		updated, err := repo.Update(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ", storage.Patch{"title": "x"})
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("unique fields reject duplicates on create and update", func(t *testing.T) {
		repo := newRepo(t)
		notes := seed(t, repo, Note{Title: "one"}, Note{Title: "two"})

		_, err := repo.Create(ctx, Note{Title: "one"})
		require.Error(t, err)
		assert.True(t, storage.IsDuplicate(err))

		_, err = repo.Update(ctx, notes[1].ID, storage.Patch{"title": "one"})
		require.Error(t, err)
		assert.True(t, storage.IsDuplicate(err))

		n, err := repo.Count(ctx, storage.Filter{"title": "one"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete reports whether a row was removed", func(t *testing.T) {
		repo := newRepo(t)
		created := seed(t, repo, Note{Title: "gone"})[0]

		removed, err := repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("exists and count follow the filter", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo, Note{Title: "a", Owner: "x"}, Note{Title: "b", Owner: "x"}, Note{Title: "c", Owner: "y"})

		n, err := repo.Count(ctx, storage.Filter{"owner": "x"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		total, err := repo.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)

		ok, err := repo.Exists(ctx, storage.Filter{"owner": "y"})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Exists(ctx, storage.Filter{"owner": "z"})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func titles(notes []Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Title)
	}
	return out
}
