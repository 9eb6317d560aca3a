package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner(t *testing.T) {
	t.Run("SignAndVerify", func(t *testing.T) {
		signer, err := NewSigner([]byte("master-secret"), "key-1")
		require.NoError(t, err)

		result := signer.Sign(`{"chain_id":"tenant-1"}`)

		assert.True(t, result.Signed)
		assert.Equal(t, "key-1", result.KeyID)
		assert.Len(t, result.Signature, 64)
		assert.True(t, signer.Verify(`{"chain_id":"tenant-1"}`, result.Signature))
	})

	t.Run("VerifyRejectsTamperedPayload", func(t *testing.T) {
		signer, err := NewSigner([]byte("master-secret"), "key-1")
		require.NoError(t, err)

		result := signer.Sign(`{"chain_id":"tenant-1"}`)

		assert.False(t, signer.Verify(`{"chain_id":"tenant-2"}`, result.Signature))
	})

	t.Run("VerifyRejectsWrongKey", func(t *testing.T) {
		signer, err := NewSigner([]byte("master-secret"), "key-1")
		require.NoError(t, err)
		other, err := NewSigner([]byte("other-secret"), "key-2")
		require.NoError(t, err)

		result := signer.Sign(`{"chain_id":"tenant-1"}`)

		assert.False(t, other.Verify(`{"chain_id":"tenant-1"}`, result.Signature))
	})

	t.Run("Deterministic", func(t *testing.T) {
		signer, err := NewSigner([]byte("master-secret"), "key-1")
		require.NoError(t, err)

		first := signer.Sign("payload")
		second := signer.Sign("payload")

		assert.Equal(t, first.Signature, second.Signature)
	})

	t.Run("UnsignedModeWithoutKey", func(t *testing.T) {
		signer, err := NewSigner(nil, "")
		require.NoError(t, err)

		result := signer.Sign("payload")

		assert.False(t, result.Signed)
		assert.Empty(t, result.Signature)
		assert.Empty(t, result.KeyID)
		assert.False(t, signer.Verify("payload", ""))
	})

	t.Run("DerivedKeyDiffersFromMaster", func(t *testing.T) {
		// Same master secret must always derive the same signing key.
		first, err := NewSigner([]byte("secret"), "k")
		require.NoError(t, err)
		second, err := NewSigner([]byte("secret"), "k")
		require.NoError(t, err)

		assert.Equal(t, first.Sign("p").Signature, second.Sign("p").Signature)
	})
}

func TestResolveSigningKey(t *testing.T) {
	ctx := t.Context()

	t.Run("DirectKeyTakesPrecedence", func(t *testing.T) {
		key, err := ResolveSigningKey(ctx, SigningKeyConfig{
			Key:           "plain-key",
			KeyCiphertext: "aWdub3JlZA==",
			KMSKeyURI:     "base64key://",
		})

		require.NoError(t, err)
		assert.Equal(t, []byte("plain-key"), key)
	})

	t.Run("NothingConfiguredReturnsNil", func(t *testing.T) {
		key, err := ResolveSigningKey(ctx, SigningKeyConfig{})

		require.NoError(t, err)
		assert.Nil(t, key)
	})

	t.Run("CiphertextWithoutKeeperURIFails", func(t *testing.T) {
		_, err := ResolveSigningKey(ctx, SigningKeyConfig{KeyCiphertext: "aWdub3JlZA=="})

		assert.Error(t, err)
	})

	t.Run("InvalidBase64Fails", func(t *testing.T) {
		_, err := ResolveSigningKey(ctx, SigningKeyConfig{
			KeyCiphertext: "not-base64!!",
			KMSKeyURI:     "base64key://",
		})

		assert.Error(t, err)
	})
}
