package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
)

// RunCreateAPIKey issues a new API key and prints the plain token.
//
// SECURITY: The plain token is shown exactly once. It is stored only as a
// SHA-256 hash and can never be recovered afterwards.
func RunCreateAPIKey(
	ctx context.Context,
	apiKeyUseCase authUseCase.APIKeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name, description, tenantID, orgID string,
	scopes []string,
	format string,
) error {
	logger.Info("creating api key",
		slog.String("name", name),
	)

	input := authDomain.CreateAPIKeyInput{
		Name:        name,
		Description: description,
		TenantID:    tenantID,
		OrgID:       orgID,
		Scopes:      scopes,
	}
	actor := authUseCase.Actor{ID: cliActorID, Type: "service"}

	output, err := apiKeyUseCase.Create(ctx, input, actor)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	// Output result based on format
	if format == "json" {
		if err := outputAPIKeyJSON(writer, output); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputAPIKeyText(writer, output)
	}

	logger.Info("api key created",
		slog.String("api_key_id", output.APIKey.ID.String()),
		slog.String("name", output.APIKey.Name),
	)

	return nil
}

// outputAPIKeyText outputs the new key in human-readable text format.
func outputAPIKeyText(writer io.Writer, output *authDomain.CreateAPIKeyOutput) {
	_, _ = fmt.Fprintf(writer, "API key created\n\n")
	_, _ = fmt.Fprintf(writer, "ID:        %s\n", output.APIKey.ID)
	_, _ = fmt.Fprintf(writer, "Name:      %s\n", output.APIKey.Name)
	if output.APIKey.TenantID != "" {
		_, _ = fmt.Fprintf(writer, "Tenant ID: %s\n", output.APIKey.TenantID)
	}
	if output.APIKey.OrgID != "" {
		_, _ = fmt.Fprintf(writer, "Org ID:    %s\n", output.APIKey.OrgID)
	}
	if len(output.APIKey.Scopes) > 0 {
		_, _ = fmt.Fprintf(writer, "Scopes:    %v\n", output.APIKey.Scopes)
	}
	_, _ = fmt.Fprintf(writer, "Token:     %s\n\n", output.PlainToken)
	_, _ = fmt.Fprintf(writer, "Store this token securely. It will not be shown again.\n")
}

// outputAPIKeyJSON outputs the new key in JSON format for machine consumption.
func outputAPIKeyJSON(writer io.Writer, output *authDomain.CreateAPIKeyOutput) error {
	result := map[string]interface{}{
		"id":        output.APIKey.ID,
		"name":      output.APIKey.Name,
		"tenant_id": output.APIKey.TenantID,
		"org_id":    output.APIKey.OrgID,
		"scopes":    output.APIKey.Scopes,
		"token":     output.PlainToken,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
