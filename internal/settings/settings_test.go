// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package settings_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor/parlor/internal/settings"
	"github.com/parlor/parlor/internal/storage"
	"github.com/parlor/parlor/internal/storage/memory"
	"github.com/parlor/parlor/pkg/errutil"
)

func ptr[T any](v T) *T { return &v }

func TestDefaults(t *testing.T) {
	s := settings.Defaults("acct")
	assert.Equal(t, "acct", s.AccountID)
	assert.Equal(t, settings.ThemeLight, s.Theme)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, "blue", s.Color)
	assert.True(t, s.Notifications)
	assert.False(t, s.SoundEnabled)
	assert.Equal(t, "en", s.Font)
}

func TestChangesValidate(t *testing.T) {
	assert.NoError(t, settings.Changes{}.Validate())
	assert.NoError(t, settings.Changes{Theme: ptr(settings.ThemeDark)}.Validate())

	err := settings.Changes{Theme: ptr(settings.Theme("neon"))}.Validate()
	errutil.AssertErrorCode(t, err, "SETTINGS_INVALID")

	err = settings.Changes{Color: ptr("")}.Validate()
	errutil.AssertErrorContext(t, err, "field", "color")
}

func TestChangesApply(t *testing.T) {
	got := settings.Changes{Theme: ptr(settings.ThemeDark), SoundEnabled: ptr(true)}.Apply(settings.Defaults("a"))
	assert.Equal(t, settings.ThemeDark, got.Theme)
	assert.True(t, got.SoundEnabled)
	assert.Equal(t, "blue", got.Color)
}

func TestStoreEnsureDefaults(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(settings.Codec)
	s := settings.NewStore(repo)

	first, created, err := s.EnsureDefaults(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.EnsureDefaults(ctx, "acct")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	n, err := repo.Count(ctx, storage.Filter{settings.FieldAccountID: "acct"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStoreEnsureDefaultsConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(settings.Codec)
	s := settings.NewStore(repo)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = s.EnsureDefaults(ctx, "acct")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	n, err := repo.Count(ctx, storage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := settings.NewStore(memory.New(settings.Codec))

	created, wasCreated, err := s.Upsert(ctx, "acct", settings.Changes{Theme: ptr(settings.ThemeDark)})
	require.NoError(t, err)
	assert.True(t, wasCreated)
	assert.Equal(t, settings.ThemeDark, created.Theme)
	assert.Equal(t, "blue", created.Color)

	updated, wasCreated, err := s.Upsert(ctx, "acct", settings.Changes{Color: ptr("green")})
	require.NoError(t, err)
	assert.False(t, wasCreated)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, settings.ThemeDark, updated.Theme)
	assert.Equal(t, "green", updated.Color)

	unchanged, _, err := s.Upsert(ctx, "acct", settings.Changes{})
	require.NoError(t, err)
	assert.Equal(t, "green", unchanged.Color)
}

func TestStoreCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := settings.NewStore(memory.New(settings.Codec))
	_, err := s.Create(ctx, settings.Defaults("acct"))
	require.NoError(t, err)
	_, err = s.Create(ctx, settings.Defaults("acct"))
	assert.True(t, storage.IsDuplicate(err))

	found, err := s.FindByAccountID(ctx, "acct")
	require.NoError(t, err)
	require.NotNil(t, found)
	missing, err := s.FindByAccountID(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
