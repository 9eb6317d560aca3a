package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	// Register KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// SigningKeyConfig describes where the audit signing secret comes from.
// Key takes precedence; otherwise KeyCiphertext (base64) is unwrapped via the
// KMS keeper at KMSKeyURI. When neither is set, signing is disabled.
type SigningKeyConfig struct {
	Key           string
	KeyCiphertext string
	KMSKeyURI     string
}

// ResolveSigningKey returns the audit signing secret, or nil when signing is
// not configured.
//
// Supported keeper URIs: gcpkms://, awskms://, azurekeyvault://, hashivault://,
// base64key:// (local).
func ResolveSigningKey(ctx context.Context, cfg SigningKeyConfig) ([]byte, error) {
	if cfg.Key != "" {
		return []byte(cfg.Key), nil
	}

	if cfg.KeyCiphertext == "" {
		return nil, nil
	}

	if cfg.KMSKeyURI == "" {
		return nil, fmt.Errorf("audit signing key ciphertext configured without a KMS key URI")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(cfg.KeyCiphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audit signing key ciphertext: %w", err)
	}

	keeper, err := secrets.OpenKeeper(ctx, cfg.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		_ = keeper.Close()
	}()

	key, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap audit signing key: %w", err)
	}

	return key, nil
}
