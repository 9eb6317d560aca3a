package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	auditUseCase "github.com/allisson/gatekeeper/internal/audit/usecase"
	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
)

// fakeChainUseCase is a canned-response audit chain engine for command tests.
type fakeChainUseCase struct {
	deleteCount    int64
	deleteCutoff   time.Time
	deleteDryRun   bool
	deleteErr      error
	verifyResult   *auditUseCase.VerifyResult
	verifyChainID  string
	verifyLimit    int
	verifyErr      error
	checkpoint     *auditDomain.AuditCheckpoint
	checkpointErr  error
	checkpointArgs []string
}

func (f *fakeChainUseCase) Append(
	_ context.Context,
	_ auditUseCase.AppendInput,
) (*auditDomain.AuditLogEntry, error) {
	return &auditDomain.AuditLogEntry{}, nil
}

func (f *fakeChainUseCase) VerifyChain(
	_ context.Context,
	chainID string,
	limit int,
) (*auditUseCase.VerifyResult, error) {
	f.verifyChainID = chainID
	f.verifyLimit = limit
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyResult, nil
}

func (f *fakeChainUseCase) CreateCheckpoint(
	_ context.Context,
	chainID, actorID, actorType string,
	_ map[string]any,
) (*auditDomain.AuditCheckpoint, error) {
	f.checkpointArgs = []string{chainID, actorID, actorType}
	if f.checkpointErr != nil {
		return nil, f.checkpointErr
	}
	return f.checkpoint, nil
}

func (f *fakeChainUseCase) ListCheckpoints(
	_ context.Context,
	_ string,
	_, _ int,
) ([]*auditDomain.AuditCheckpoint, error) {
	return nil, nil
}

func (f *fakeChainUseCase) GetLatestHash(_ context.Context, _ string) (*string, error) {
	return nil, nil
}

func (f *fakeChainUseCase) ChainID(_ map[string]any) string {
	return auditDomain.GlobalChainID
}

func (f *fakeChainUseCase) List(_ context.Context, _, _ int) ([]*auditDomain.AuditLogEntry, error) {
	return nil, nil
}

func (f *fakeChainUseCase) EntityHistory(
	_ context.Context,
	_, _ string,
	_ int,
) ([]*auditDomain.AuditLogEntry, error) {
	return nil, nil
}

func (f *fakeChainUseCase) ActorHistory(
	_ context.Context,
	_ string,
	_ int,
) ([]*auditDomain.AuditLogEntry, error) {
	return nil, nil
}

func (f *fakeChainUseCase) SoftDeleteEntry(_ context.Context, _ uuid.UUID) error {
	return nil
}

func (f *fakeChainUseCase) DeleteOlderThan(
	_ context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	f.deleteCutoff = olderThan
	f.deleteDryRun = dryRun
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.deleteCount, nil
}

// fakeAPIKeyUseCase is a canned-response API key admin surface for command tests.
type fakeAPIKeyUseCase struct {
	createInput  authDomain.CreateAPIKeyInput
	createActor  authUseCase.Actor
	createOutput *authDomain.CreateAPIKeyOutput
	createErr    error
	revokedID    uuid.UUID
	revokeActor  authUseCase.Actor
	revokeErr    error
}

func (f *fakeAPIKeyUseCase) Create(
	_ context.Context,
	input authDomain.CreateAPIKeyInput,
	actor authUseCase.Actor,
) (*authDomain.CreateAPIKeyOutput, error) {
	f.createInput = input
	f.createActor = actor
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOutput, nil
}

func (f *fakeAPIKeyUseCase) Get(_ context.Context, _ uuid.UUID) (*authDomain.APIKey, error) {
	return nil, authDomain.ErrAPIKeyNotFound
}

func (f *fakeAPIKeyUseCase) List(_ context.Context, _, _ int) ([]*authDomain.APIKey, error) {
	return nil, nil
}

func (f *fakeAPIKeyUseCase) Revoke(_ context.Context, id uuid.UUID, actor authUseCase.Actor) error {
	f.revokedID = id
	f.revokeActor = actor
	return f.revokeErr
}
