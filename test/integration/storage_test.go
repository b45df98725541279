// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/stretchr/testify/require"

	"github.com/parlor/parlor/internal/account"
	"github.com/parlor/parlor/internal/settings"
	"github.com/parlor/parlor/internal/storage"
	"github.com/parlor/parlor/internal/storage/postgres"
	"github.com/parlor/parlor/internal/storage/storagetest"
)

var _ = Describe("PostgreSQL storage", func() {
	newAccount := func(email, username string) account.Account {
		return account.Account{Email: email, Username: username, PasswordHash: "$argon2id$placeholder"}
	}

	It("reports unique violations as duplicates naming the column", func() {
		repo := postgres.NewRepository(env.pool, account.Codec)

		_, err := repo.Create(env.ctx, newAccount("ada@example.com", "ada"))
		Expect(err).NotTo(HaveOccurred())

		_, err = repo.Create(env.ctx, newAccount("ada@example.com", "someone"))
		Expect(storage.IsDuplicate(err)).To(BeTrue())

		_, err = repo.Create(env.ctx, newAccount("other@example.com", "ada"))
		Expect(storage.IsDuplicate(err)).To(BeTrue())
	})

	It("finds an account by the digest of its pending token", func() {
		store := account.NewStore(postgres.NewRepository(env.pool, account.Codec))
		created, err := store.Create(env.ctx, newAccount("ada@example.com", "ada"))
		Expect(err).NotTo(HaveOccurred())

		_, err = store.IssueToken(env.ctx, created.ID, account.PendingToken{
			Value:     "digest-1",
			Purpose:   account.PurposeReset,
			ExpiresAt: time.Now().Add(time.Hour),
		})
		Expect(err).NotTo(HaveOccurred())

		found, err := store.FindByTokenDigest(env.ctx, "digest-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).NotTo(BeNil())
		Expect(found.ID).To(Equal(created.ID))
		Expect(found.PendingToken.Purpose).To(Equal(account.PurposeReset))

		cleared, err := store.ClearToken(env.ctx, created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(cleared.PendingToken).To(BeNil())
	})

	It("keeps one settings row per account", func() {
		accounts := account.NewStore(postgres.NewRepository(env.pool, account.Codec))
		acct, err := accounts.Create(env.ctx, newAccount("ada@example.com", "ada"))
		Expect(err).NotTo(HaveOccurred())

		store := settings.NewStore(postgres.NewRepository(env.pool, settings.Codec))
		_, created, err := store.EnsureDefaults(env.ctx, acct.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())

		_, created, err = store.EnsureDefaults(env.ctx, acct.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeFalse())

		_, err = store.Create(env.ctx, settings.Defaults(acct.ID))
		Expect(storage.IsDuplicate(err)).To(BeTrue())
	})

	It("reports every embedded migration as applied", func() {
		migrator, err := postgres.NewMigrator(env.connStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(migrator.Close()).To(Succeed()) }()

		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Dirty).To(BeFalse())
		Expect(st.Pending).To(BeEmpty())
		Expect(st.Applied).To(HaveLen(3))
	})
})

const notesDDL = `
CREATE TABLE notes (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    owner       TEXT NOT NULL DEFAULT '',
    pinned      BOOLEAN NOT NULL DEFAULT FALSE,
    archived_at TIMESTAMPTZ,
    tags        JSONB,
    version     BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT notes_title_key UNIQUE (title)
)`

// TestPostgresRepositoryContract runs the shared repository contract on a
// dedicated database.
func TestPostgresRepositoryContract(t *testing.T) {
	ctx := context.Background()

	container, connStr, err := startPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, notesDDL)
	require.NoError(t, err)

	storagetest.Run(t, func(t *testing.T) storage.Repository[storagetest.Note] {
		_, err := pool.Exec(ctx, "TRUNCATE notes")
		require.NoError(t, err)
		return postgres.NewRepository(pool, storagetest.NoteCodec)
	})
}
