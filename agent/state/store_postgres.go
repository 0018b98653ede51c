package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type conversationRow struct {
	bun.BaseModel `bun:"table:conversation_states,alias:cs"`

	ConversationID string             `bun:"conversation_id,pk"`
	State          *ConversationState `bun:"state,type:jsonb,notnull"`
	UpdatedAt      time.Time          `bun:"updated_at,notnull"`
}

// PostgresStore persists checkpoints as jsonb rows, upserting on conversation_id.
type PostgresStore struct {
	db *bun.DB
}

func OpenPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	store := NewPostgresStore(bun.NewDB(sqldb, pgdialect.New()))
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the checkpoint table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*conversationRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create conversation_states table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, conversationID string) (*ConversationState, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidConversation
	}

	row := new(conversationRow)
	err := s.db.NewSelect().
		Model(row).
		Where("conversation_id = ?", conversationID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation state: %w", err)
	}
	if row.State == nil {
		return nil, ErrStateNotFound
	}

	row.State.EnsureResultsMap()
	if err := row.State.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conversation state loaded from store: %w", err)
	}
	return row.State, nil
}

func (s *PostgresStore) Save(ctx context.Context, st *ConversationState) error {
	// encodeState validates and normalizes timestamps; bun marshals the jsonb column itself.
	if _, err := encodeState(st); err != nil {
		return err
	}

	row := &conversationRow{
		ConversationID: st.ConversationID,
		State:          st,
		UpdatedAt:      st.UpdatedAt,
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (conversation_id) DO UPDATE").
		Set("state = EXCLUDED.state").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert conversation state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}
	_, err := s.db.NewDelete().
		Model((*conversationRow)(nil)).
		Where("conversation_id = ?", conversationID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete conversation state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
