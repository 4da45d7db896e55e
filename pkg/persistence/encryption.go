package persistence

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/quill/pkg/domain"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// ParseKeys builds an EncryptionConfig from hex keys. The first key is active,
// the rest are fallbacks.
func ParseKeys(hexKeys ...string) (EncryptionConfig, error) {
	var cfg EncryptionConfig
	for i, h := range hexKeys {
		key, err := hex.DecodeString(strings.TrimSpace(h))
		if err != nil {
			return EncryptionConfig{}, fmt.Errorf("encryption key %d: %w", i, err)
		}
		if i == 0 {
			cfg.ActiveKey = key
		} else {
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
	}
	return cfg, nil
}

// EncryptedCodec seals the output of an inner codec with AES-GCM.
//
// Every encoding uses a fresh nonce, so two encodings of the same checkpoint
// differ byte-wise. Stores compare decoded checkpoints, never raw bytes.
type EncryptedCodec struct {
	inner  Codec
	config EncryptionConfig
}

// NewEncryptedCodec wraps inner. A nil inner means JSONCodec.
func NewEncryptedCodec(config EncryptionConfig, inner Codec) (*EncryptedCodec, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i)
		}
	}
	if inner == nil {
		inner = JSONCodec{}
	}
	return &EncryptedCodec{inner: inner, config: config}, nil
}

func (c *EncryptedCodec) Encode(cp domain.Checkpoint) ([]byte, error) {
	plainText, err := c.inner.Encode(cp)
	if err != nil {
		return nil, err
	}
	ciphertext, err := encrypt(plainText, c.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt checkpoint: %w", err)
	}
	return ciphertext, nil
}

func (c *EncryptedCodec) Decode(data []byte) (domain.Checkpoint, error) {
	plainText, err := decryptWithRotation(data, c.config.ActiveKey, c.config.FallbackKeys)
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("failed to decrypt checkpoint: %w", err)
	}
	return c.inner.Decode(plainText)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
