package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	"github.com/allisson/gatekeeper/internal/database"
	"github.com/allisson/gatekeeper/internal/testutil"
)

func TestNewMySQLAuditLogRepository(t *testing.T) {
	testutil.SkipIfNoMySQL(t)
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewMySQLAuditLogRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &MySQLAuditLogRepository{}, repo)
}

func TestMySQLAuditLogRepository_CreateAndRead(t *testing.T) {
	testutil.SkipIfNoMySQL(t)
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLAuditLogRepository(db)
	ctx := context.Background()

	entry := newTestEntry(t, "tenant-1", nil)
	require.NoError(t, repo.Create(ctx, entry))

	entries, err := repo.ListChain(ctx, "tenant-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	read := entries[0]
	assert.Equal(t, entry.ID, read.ID)
	assert.Equal(t, entry.ChainID, read.ChainID)
	assert.Equal(t, entry.Changes, read.Changes)
	assert.Nil(t, read.PrevHash)
	assert.Equal(t, entry.EntryHash, read.EntryHash)
	assert.Equal(t, entry.CanonicalPayload, read.CanonicalPayload)
}

// Concurrent appenders racing on the latest-hash read must serialize on the
// chain head lock: every committed entry links to a distinct predecessor, so
// the chain never forks. The lock has to survive until commit for this to
// hold; a lock released before commit lets a second appender read a stale
// latest hash.
func TestMySQLAuditLogRepository_ConcurrentAppendsDoNotFork(t *testing.T) {
	testutil.SkipIfNoMySQL(t)
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLAuditLogRepository(db)
	txManager := database.NewTxManager(db)
	ctx := context.Background()

	const appenders = 4

	var wg sync.WaitGroup
	errs := make(chan error, appenders)

	for i := 0; i < appenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- txManager.WithTx(ctx, func(txCtx context.Context) error {
				if err := repo.LockChain(txCtx, "tenant-1"); err != nil {
					return err
				}
				prevHash, err := repo.LatestEntryHash(txCtx, "tenant-1")
				if err != nil {
					return err
				}
				entry, err := auditDomain.NewEntry(auditDomain.EntryInput{
					ChainID:    "tenant-1",
					PrevHash:   prevHash,
					Action:     auditDomain.ActionCreate,
					EntityType: "policy",
					EntityID:   uuid.Must(uuid.NewV7()).String(),
					ActorID:    "api_key:test",
					ActorType:  "api_key",
					Context:    map[string]any{"tenant_id": "tenant-1"},
					Retention:  30 * 24 * time.Hour,
					CreatedAt:  time.Now().UTC(),
				})
				if err != nil {
					return err
				}
				return repo.Create(txCtx, entry)
			})
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := repo.ListChain(ctx, "tenant-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, appenders)

	// Exactly one genesis entry, and no two entries share a predecessor.
	seen := make(map[string]bool)
	genesis := 0
	for _, entry := range entries {
		if entry.PrevHash == nil {
			genesis++
			continue
		}
		assert.False(t, seen[*entry.PrevHash], "two entries link to the same predecessor: chain forked")
		seen[*entry.PrevHash] = true
	}
	assert.Equal(t, 1, genesis)
}
