package persistence_test

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"io"
	"testing"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func sampleCheckpoint() domain.Checkpoint {
	cp := domain.Checkpoint{
		ThreadID:  "thread-1",
		StepIndex: 3,
		Step:      domain.StepGenerate,
		Next:      domain.StepReflect,
		State:     domain.NewState("my-secret-sauce", 2),
	}
	cp.State.Draft = "draft text"
	cp.State.Content = []string{"snippet"}
	return cp
}

func TestJSONCodec_Roundtrip(t *testing.T) {
	var codec persistence.JSONCodec

	data, err := codec.Encode(sampleCheckpoint())
	require.NoError(t, err)

	got, err := codec.Decode(data)
	require.NoError(t, err)
	assert.True(t, sampleCheckpoint().Equivalent(got))
}

func TestEncryptedCodec_Roundtrip(t *testing.T) {
	codec, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: generateKey(t)}, nil)
	require.NoError(t, err)

	data, err := codec.Encode(sampleCheckpoint())
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, []byte("my-secret-sauce")), "ciphertext must not leak the task")

	got, err := codec.Decode(data)
	require.NoError(t, err)
	assert.True(t, sampleCheckpoint().Equivalent(got))
}

func TestEncryptedCodec_KeyRotation(t *testing.T) {
	oldKey := generateKey(t)
	newKey := generateKey(t)

	oldCodec, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: oldKey}, nil)
	require.NoError(t, err)
	data, err := oldCodec.Encode(sampleCheckpoint())
	require.NoError(t, err)

	rotated, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	}, nil)
	require.NoError(t, err)

	got, err := rotated.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", got.State.Task)

	strict, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: newKey}, nil)
	require.NoError(t, err)
	_, err = strict.Decode(data)
	assert.Error(t, err, "decoding without the old key should fail")
}

func TestNewEncryptedCodec_RejectsShortKey(t *testing.T) {
	_, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: []byte("short")}, nil)
	assert.Error(t, err)
}

func TestParseKeys(t *testing.T) {
	active := generateKey(t)
	fallback := generateKey(t)

	cfg, err := persistence.ParseKeys(hex.EncodeToString(active), hex.EncodeToString(fallback))
	require.NoError(t, err)
	assert.Equal(t, active, cfg.ActiveKey)
	assert.Equal(t, [][]byte{fallback}, cfg.FallbackKeys)

	_, err = persistence.ParseKeys("not-hex")
	assert.Error(t, err)
}
