package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
)

// RunRevokeAPIKey revokes an API key by id. Revoked keys fail authentication
// immediately; revocation is permanent.
func RunRevokeAPIKey(
	ctx context.Context,
	apiKeyUseCase authUseCase.APIKeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	id string,
) error {
	keyID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid api key id: %w", err)
	}

	logger.Info("revoking api key",
		slog.String("api_key_id", keyID.String()),
	)

	actor := authUseCase.Actor{ID: cliActorID, Type: "service"}

	if err := apiKeyUseCase.Revoke(ctx, keyID, actor); err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "API key %s revoked\n", keyID)

	logger.Info("api key revoked",
		slog.String("api_key_id", keyID.String()),
	)

	return nil
}
