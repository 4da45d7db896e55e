package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/persistence"
)

const ext = ".ckpt"

// Store implements ports.CheckpointStore using the local filesystem.
// Each thread is a directory holding one file per checkpoint, named by step index.
type Store struct {
	BasePath string
	codec    persistence.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithCodec sets the snapshot codec. Defaults to persistence.JSONCodec.
func WithCodec(c persistence.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".quill/threads".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".quill", "threads")
	}
	s := &Store{BasePath: basePath, codec: persistence.JSONCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) threadDir(threadID string) (string, error) {
	if threadID == "" {
		return "", fmt.Errorf("threadID cannot be empty")
	}
	if threadID == "." || threadID == ".." || strings.ContainsAny(threadID, `/\`) {
		return "", fmt.Errorf("invalid threadID %q", threadID)
	}
	return filepath.Join(s.BasePath, threadID), nil
}

func checkpointName(index int) string {
	return fmt.Sprintf("%08d%s", index, ext)
}

// Save persists the checkpoint atomically.
// It writes to a temporary file first, syncs via fsync, and then hard-links it to the destination.
// Linking fails when the destination exists, so an existing index is never overwritten,
// even by another process sharing the directory.
func (s *Store) Save(ctx context.Context, cp domain.Checkpoint) error {
	dir, err := s.threadDir(cp.ThreadID)
	if err != nil {
		return err
	}
	if cp.StepIndex < 0 {
		return fmt.Errorf("invalid step index %d", cp.StepIndex)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure thread directory: %w", err)
	}

	destPath := filepath.Join(dir, checkpointName(cp.StepIndex))

	if err := s.compare(destPath, cp); !errors.Is(err, os.ErrNotExist) {
		return err
	}

	data, err := s.codec.Encode(cp)
	if err != nil {
		return err
	}

	// Same directory, so the link stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Link(tmpPath, destPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another writer published this index first.
			return s.compare(destPath, cp)
		}
		return fmt.Errorf("failed to publish checkpoint: %w", err)
	}

	syncDir(dir)
	return nil
}

// compare checks cp against the checkpoint stored at path. It returns nil
// for an equivalent payload and os.ErrNotExist when nothing is stored.
func (s *Store) compare(path string, cp domain.Checkpoint) error {
	existing, err := s.read(path)
	if err != nil {
		return err
	}
	if !existing.Equivalent(cp) {
		return fmt.Errorf("%w: thread %q index %d", domain.ErrCheckpointConflict, cp.ThreadID, cp.StepIndex)
	}
	return nil
}

// syncDir flushes the new directory entry. Not supported everywhere, so errors are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func (s *Store) read(path string) (domain.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Checkpoint{}, err
		}
		return domain.Checkpoint{}, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	cp, err := s.codec.Decode(data)
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cp, nil
}

// indexes returns the sorted step indexes present for a thread.
func (s *Store) indexes(threadID string) (string, []int, error) {
	dir, err := s.threadDir(threadID)
	if err != nil {
		return "", nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return dir, nil, nil
		}
		return "", nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	var out []int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		out = append(out, idx)
	}
	sort.Ints(out)
	return dir, out, nil
}

// LoadLatest retrieves the highest-indexed checkpoint of the thread.
func (s *Store) LoadLatest(ctx context.Context, threadID string) (domain.Checkpoint, error) {
	dir, idx, err := s.indexes(threadID)
	if err != nil {
		return domain.Checkpoint{}, err
	}
	if len(idx) == 0 {
		return domain.Checkpoint{}, &domain.NoCheckpointError{ThreadID: threadID}
	}
	return s.read(filepath.Join(dir, checkpointName(idx[len(idx)-1])))
}

// List returns every checkpoint of the thread in step order.
func (s *Store) List(ctx context.Context, threadID string) ([]domain.Checkpoint, error) {
	dir, idx, err := s.indexes(threadID)
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return nil, &domain.NoCheckpointError{ThreadID: threadID}
	}

	out := make([]domain.Checkpoint, 0, len(idx))
	for _, i := range idx {
		cp, err := s.read(filepath.Join(dir, checkpointName(i)))
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Delete removes the thread directory.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	dir, err := s.threadDir(threadID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete thread directory: %w", err)
	}
	return nil
}

// Threads returns every thread that has at least one checkpoint.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	threads := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, idx, err := s.indexes(entry.Name()); err == nil && len(idx) > 0 {
			threads = append(threads, entry.Name())
		}
	}
	return threads, nil
}
