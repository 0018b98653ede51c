package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const defaultBoltBucket = "conversation_states"

type BoltConfig struct {
	Path    string        `envconfig:"PATH" split_words:"true" default:"data/checkpoints.bolt"`
	Bucket  string        `envconfig:"BUCKET" split_words:"true" default:"conversation_states"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"2s"`
}

// BoltStore persists checkpoints in a single BoltDB file, one key per conversation.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

func NewBoltStore(cfg BoltConfig) (*BoltStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("bolt path is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = defaultBoltBucket
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, errCreate := tx.CreateBucketIfNotExists([]byte(bucket))
		return errCreate
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}

	return &BoltStore{db: db, bucket: []byte(bucket)}, nil
}

func (s *BoltStore) Load(ctx context.Context, conversationID string) (*ConversationState, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidConversation
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(conversationID)); v != nil {
			// v is only valid for the life of the transaction.
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read bolt state: %w", err)
	}
	if raw == nil {
		return nil, ErrStateNotFound
	}
	return decodeState(raw)
}

func (s *BoltStore) Save(ctx context.Context, st *ConversationState) error {
	payload, err := encodeState(st)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, errBucket := tx.CreateBucketIfNotExists(s.bucket)
		if errBucket != nil {
			return errBucket
		}
		return b.Put([]byte(st.ConversationID), payload)
	})
}

func (s *BoltStore) Delete(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(conversationID))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
