package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/quill/pkg/domain"
)

// Codec turns a checkpoint into the bytes a durable store writes.
type Codec interface {
	Encode(cp domain.Checkpoint) ([]byte, error)
	Decode(data []byte) (domain.Checkpoint, error)
}

// JSONCodec is the default codec.
type JSONCodec struct{}

func (JSONCodec) Encode(cp domain.Checkpoint) ([]byte, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (domain.Checkpoint, error) {
	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return domain.Checkpoint{}, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if cp.State.Content == nil {
		cp.State.Content = []string{}
	}
	return cp, nil
}
