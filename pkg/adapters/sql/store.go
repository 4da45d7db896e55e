// Package sql implements a checkpoint store on top of gorm, so any database
// with a gorm dialector (sqlite, postgres, mysql) can hold thread histories.
package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/persistence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// checkpointRecord is one row per (thread, step index).
type checkpointRecord struct {
	ThreadID  string `gorm:"primaryKey;size:191"`
	StepIndex int    `gorm:"primaryKey;autoIncrement:false"`
	Step      string `gorm:"size:64"`
	Next      string `gorm:"size:64"`
	Payload   []byte
	CreatedAt time.Time
}

func (checkpointRecord) TableName() string {
	return "quill_checkpoints"
}

// Store implements ports.CheckpointStore using gorm.
type Store struct {
	db    *gorm.DB
	codec persistence.Codec
}

type Option func(*Store)

// WithCodec sets the snapshot codec. Defaults to persistence.JSONCodec.
func WithCodec(c persistence.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// Open connects with dialector and migrates the schema.
func Open(dialector gorm.Dialector, opts ...Option) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(db, opts...)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if err := db.AutoMigrate(&checkpointRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	s := &Store{db: db, codec: persistence.JSONCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save inserts the checkpoint, doing nothing on a primary-key conflict and
// then comparing against the row that won.
func (s *Store) Save(ctx context.Context, cp domain.Checkpoint) error {
	payload, err := s.codec.Encode(cp)
	if err != nil {
		return err
	}

	rec := checkpointRecord{
		ThreadID:  cp.ThreadID,
		StepIndex: cp.StepIndex,
		Step:      string(cp.Step),
		Next:      string(cp.Next),
		Payload:   payload,
		CreatedAt: cp.CreatedAt,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if res.Error != nil {
			return fmt.Errorf("failed to insert checkpoint: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}

		var existing checkpointRecord
		if err := tx.Where("thread_id = ? AND step_index = ?", cp.ThreadID, cp.StepIndex).First(&existing).Error; err != nil {
			return fmt.Errorf("failed to read existing checkpoint: %w", err)
		}
		prev, err := s.codec.Decode(existing.Payload)
		if err != nil {
			return err
		}
		if !prev.Equivalent(cp) {
			return fmt.Errorf("%w: thread %q index %d", domain.ErrCheckpointConflict, cp.ThreadID, cp.StepIndex)
		}
		return nil
	})
}

// LoadLatest retrieves the highest-indexed checkpoint.
func (s *Store) LoadLatest(ctx context.Context, threadID string) (domain.Checkpoint, error) {
	var rec checkpointRecord
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("step_index DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Checkpoint{}, &domain.NoCheckpointError{ThreadID: threadID}
		}
		return domain.Checkpoint{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return s.codec.Decode(rec.Payload)
}

// List returns every checkpoint of the thread in step order.
func (s *Store) List(ctx context.Context, threadID string) ([]domain.Checkpoint, error) {
	var recs []checkpointRecord
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("step_index ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(recs) == 0 {
		return nil, &domain.NoCheckpointError{ThreadID: threadID}
	}

	out := make([]domain.Checkpoint, 0, len(recs))
	for _, rec := range recs {
		cp, err := s.codec.Decode(rec.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Threads returns distinct thread identifiers, sorted.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	threads := []string{}
	err := s.db.WithContext(ctx).
		Model(&checkpointRecord{}).
		Distinct("thread_id").
		Order("thread_id").
		Pluck("thread_id", &threads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// Delete removes every row of the thread.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&checkpointRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
