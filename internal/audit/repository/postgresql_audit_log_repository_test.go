package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	"github.com/allisson/gatekeeper/internal/database"
	"github.com/allisson/gatekeeper/internal/testutil"
)

// newTestEntry builds a fully hashed entry on the given chain.
func newTestEntry(t *testing.T, chainID string, prevHash *string) *auditDomain.AuditLogEntry {
	t.Helper()

	time.Sleep(time.Millisecond) // Ensure distinct timestamps for chain ordering

	entry, err := auditDomain.NewEntry(auditDomain.EntryInput{
		ChainID:    chainID,
		PrevHash:   prevHash,
		Action:     auditDomain.ActionCreate,
		EntityType: "policy",
		EntityID:   uuid.Must(uuid.NewV7()).String(),
		ActorID:    "api_key:test",
		ActorType:  "api_key",
		Changes:    map[string]any{"name": "test-policy"},
		Reason:     "repository test",
		Context:    map[string]any{"tenant_id": chainID},
		Retention:  30 * 24 * time.Hour,
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	return entry
}

func TestNewPostgreSQLAuditLogRepository(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLAuditLogRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLAuditLogRepository{}, repo)
}

func TestPostgreSQLAuditLogRepository_CreateAndRead(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAuditLogRepository(db)
	ctx := context.Background()

	entry := newTestEntry(t, "tenant-1", nil)
	require.NoError(t, repo.Create(ctx, entry))

	entries, err := repo.ListChain(ctx, "tenant-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	read := entries[0]
	assert.Equal(t, entry.ID, read.ID)
	assert.Equal(t, entry.ChainID, read.ChainID)
	assert.Equal(t, entry.Action, read.Action)
	assert.Equal(t, entry.EntityType, read.EntityType)
	assert.Equal(t, entry.EntityID, read.EntityID)
	assert.Equal(t, entry.ActorID, read.ActorID)
	assert.Equal(t, entry.Reason, read.Reason)
	assert.Equal(t, entry.Changes, read.Changes)
	assert.Equal(t, entry.Context, read.Context)
	assert.Nil(t, read.PrevHash)
	assert.Equal(t, entry.EntryHash, read.EntryHash)
	assert.Equal(t, entry.CanonicalPayload, read.CanonicalPayload)
	assert.False(t, read.IsDeleted)
	assert.WithinDuration(t, entry.CreatedAt, read.CreatedAt, time.Second)
}

func TestPostgreSQLAuditLogRepository_LatestEntryHash(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAuditLogRepository(db)
	ctx := context.Background()

	// Empty chain
	hash, err := repo.LatestEntryHash(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, hash)

	// Append two linked entries
	first := newTestEntry(t, "tenant-1", nil)
	require.NoError(t, repo.Create(ctx, first))

	second := newTestEntry(t, "tenant-1", &first.EntryHash)
	require.NoError(t, repo.Create(ctx, second))

	hash, err = repo.LatestEntryHash(ctx, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, hash)
	assert.Equal(t, second.EntryHash, *hash)

	// Other chains are unaffected
	hash, err = repo.LatestEntryHash(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Nil(t, hash)
}

func TestPostgreSQLAuditLogRepository_ListChainOrdering(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAuditLogRepository(db)
	ctx := context.Background()

	var prev *string
	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		entry := newTestEntry(t, "tenant-1", prev)
		require.NoError(t, repo.Create(ctx, entry))
		ids = append(ids, entry.ID)
		prev = &entry.EntryHash
	}

	entries, err := repo.ListChain(ctx, "tenant-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i, entry := range entries {
		assert.Equal(t, ids[i], entry.ID)
	}

	// Limit caps from the start of the chain
	entries, err = repo.ListChain(ctx, "tenant-1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ids[0], entries[0].ID)
}

func TestPostgreSQLAuditLogRepository_SoftDelete(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAuditLogRepository(db)
	ctx := context.Background()

	entry := newTestEntry(t, "tenant-1", nil)
	require.NoError(t, repo.Create(ctx, entry))

	require.NoError(t, repo.SoftDelete(ctx, entry.ID))

	// Hidden from listings
	entries, err := repo.List(ctx, 0, 50)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Still present in the chain walk, with hash fields intact
	chain, err := repo.ListChain(ctx, "tenant-1", 0)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.True(t, chain[0].IsDeleted)
	assert.Equal(t, entry.EntryHash, chain[0].EntryHash)

	// Deleting twice reports not found
	err = repo.SoftDelete(ctx, entry.ID)
	assert.ErrorIs(t, err, auditDomain.ErrEntryNotFound)

	// Unknown id reports not found
	err = repo.SoftDelete(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, auditDomain.ErrEntryNotFound)
}

func TestPostgreSQLAuditLogRepository_ListByEntityAndActor(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAuditLogRepository(db)
	ctx := context.Background()

	entry := newTestEntry(t, "tenant-1", nil)
	require.NoError(t, repo.Create(ctx, entry))

	other := newTestEntry(t, "tenant-1", &entry.EntryHash)
	other.ActorID = "static-token"
	require.NoError(t, repo.Create(ctx, other))

	byEntity, err := repo.ListByEntity(ctx, "policy", entry.EntityID, 50)
	require.NoError(t, err)
	require.Len(t, byEntity, 1)
	assert.Equal(t, entry.ID, byEntity[0].ID)

	byActor, err := repo.ListByActor(ctx, "static-token", 50)
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, other.ID, byActor[0].ID)
}

func TestPostgreSQLAuditLogRepository_LockChainInTransaction(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAuditLogRepository(db)
	txManager := database.NewTxManager(db)
	ctx := context.Background()

	err := txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.LockChain(txCtx, "tenant-1"); err != nil {
			return err
		}
		entry := newTestEntry(t, "tenant-1", nil)
		return repo.Create(txCtx, entry)
	})
	require.NoError(t, err)

	entries, err := repo.ListChain(ctx, "tenant-1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPostgreSQLAuditLogRepository_DeleteOlderThan(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAuditLogRepository(db)
	ctx := context.Background()

	// Expired entry: created long ago with lapsed retention
	expired := newTestEntry(t, "tenant-1", nil)
	expired.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	expired.RetentionUntil = time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, repo.Create(ctx, expired))

	// Fresh entry stays
	fresh := newTestEntry(t, "tenant-1", &expired.EntryHash)
	require.NoError(t, repo.Create(ctx, fresh))

	// Dry run counts without deleting
	count, err := repo.DeleteOlderThan(ctx, time.Now().UTC(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entries, err := repo.ListChain(ctx, "tenant-1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Real run removes the expired entry only
	count, err = repo.DeleteOlderThan(ctx, time.Now().UTC(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entries, err = repo.ListChain(ctx, "tenant-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
}
