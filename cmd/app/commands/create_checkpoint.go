package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	auditUseCase "github.com/allisson/gatekeeper/internal/audit/usecase"
)

// RunCreateCheckpoint snapshots a chain's latest entry hash into a new
// checkpoint row, signed when a signing key is configured. Creating a
// checkpoint never mutates the chain it snapshots.
//
// Requirements: Database must be migrated and accessible.
func RunCreateCheckpoint(
	ctx context.Context,
	chainUseCase auditUseCase.ChainUseCase,
	logger *slog.Logger,
	writer io.Writer,
	chainID string,
	format string,
) error {
	if chainID == "" {
		chainID = auditDomain.GlobalChainID
	}

	logger.Info("creating audit checkpoint",
		slog.String("chain_id", chainID),
	)

	checkpoint, err := chainUseCase.CreateCheckpoint(ctx, chainID, cliActorID, "service", nil)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}

	// Output result based on format
	if format == "json" {
		if err := outputCheckpointJSON(writer, checkpoint); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputCheckpointText(writer, checkpoint)
	}

	logger.Info("checkpoint created",
		slog.String("checkpoint_id", checkpoint.ID.String()),
		slog.String("chain_id", checkpoint.ChainID),
		slog.Bool("signed", checkpoint.Signed),
	)

	return nil
}

// outputCheckpointText outputs the checkpoint in human-readable text format.
func outputCheckpointText(writer io.Writer, checkpoint *auditDomain.AuditCheckpoint) {
	lastHash := "(empty chain)"
	if checkpoint.LastEntryHash != nil {
		lastHash = *checkpoint.LastEntryHash
	}

	_, _ = fmt.Fprintf(writer, "Audit checkpoint created\n\n")
	_, _ = fmt.Fprintf(writer, "ID:              %s\n", checkpoint.ID)
	_, _ = fmt.Fprintf(writer, "Chain ID:        %s\n", checkpoint.ChainID)
	_, _ = fmt.Fprintf(writer, "Last Entry Hash: %s\n", lastHash)
	_, _ = fmt.Fprintf(writer, "Signed:          %t\n", checkpoint.Signed)
	if checkpoint.Signed {
		_, _ = fmt.Fprintf(writer, "Key ID:          %s\n", checkpoint.KeyID)
	}
	_, _ = fmt.Fprintf(writer, "Created At:      %s\n", checkpoint.CreatedAt.Format("2006-01-02 15:04:05"))
}

// outputCheckpointJSON outputs the checkpoint in JSON format for machine consumption.
func outputCheckpointJSON(writer io.Writer, checkpoint *auditDomain.AuditCheckpoint) error {
	result := map[string]interface{}{
		"id":              checkpoint.ID,
		"chain_id":        checkpoint.ChainID,
		"last_entry_hash": checkpoint.LastEntryHash,
		"signed":          checkpoint.Signed,
		"key_id":          checkpoint.KeyID,
		"created_at":      checkpoint.CreatedAt,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
