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

// RunVerifyChain walks an audit chain in creation order, recomputing each
// entry's hash and checking the prev_hash linkage. Reports the first broken
// entry when the chain fails verification.
//
// Requirements: Database must be migrated and accessible.
func RunVerifyChain(
	ctx context.Context,
	chainUseCase auditUseCase.ChainUseCase,
	logger *slog.Logger,
	writer io.Writer,
	chainID string,
	limit int,
	format string,
) error {
	if chainID == "" {
		chainID = auditDomain.GlobalChainID
	}

	logger.Info("verifying audit chain",
		slog.String("chain_id", chainID),
		slog.Int("limit", limit),
	)

	// Walk the chain; limit <= 0 verifies the whole chain
	result, err := chainUseCase.VerifyChain(ctx, chainID, limit)
	if err != nil {
		return fmt.Errorf("failed to verify audit chain: %w", err)
	}

	// Output result based on format
	if format == "json" {
		if err := outputVerifyJSON(writer, result); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputVerifyText(writer, result)
	}

	logger.Info("verification completed",
		slog.Bool("ok", result.OK),
		slog.Int("total", result.Total),
		slog.Int("verified", result.Verified),
		slog.Int("unverified", result.Unverified),
	)

	// Exit with error code if integrity check failed
	if !result.OK {
		return fmt.Errorf("integrity check failed: chain %s broken at entry %s", result.ChainID, result.FirstFailureID)
	}

	return nil
}

// outputVerifyText outputs the verification result in human-readable text format.
func outputVerifyText(writer io.Writer, result *auditUseCase.VerifyResult) {
	_, _ = fmt.Fprintf(writer, "Audit Chain Integrity Verification\n")
	_, _ = fmt.Fprintf(writer, "==================================\n\n")
	_, _ = fmt.Fprintf(writer, "Chain ID:       %s\n\n", result.ChainID)

	_, _ = fmt.Fprintf(writer, "Total Checked:  %d\n", result.Total)
	_, _ = fmt.Fprintf(writer, "Verified:       %d\n", result.Verified)
	_, _ = fmt.Fprintf(writer, "Unverified:     %d (legacy)\n\n", result.Unverified)

	switch {
	case !result.OK:
		_, _ = fmt.Fprintf(writer, "WARNING: chain broken at entry %s\n\n", result.FirstFailureID)
		_, _ = fmt.Fprintf(writer, "Status: FAILED\n")
	case result.Total == 0:
		_, _ = fmt.Fprintf(writer, "Status: No entries found on chain\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
	}
}

// outputVerifyJSON outputs the verification result in JSON format for machine consumption.
func outputVerifyJSON(writer io.Writer, result *auditUseCase.VerifyResult) error {
	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
