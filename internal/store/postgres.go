package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sostenible-social/marketplace-chat/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id              UUID PRIMARY KEY,
	item_id         TEXT NOT NULL,
	participant_lo  TEXT NOT NULL,
	participant_hi  TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (participant_lo, participant_hi, item_id)
);

CREATE TABLE IF NOT EXISTS messages (
	seq             BIGSERIAL PRIMARY KEY,
	id              UUID NOT NULL UNIQUE,
	conversation_id UUID NOT NULL REFERENCES conversations (id),
	sender_id       TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_conversation_order
	ON messages (conversation_id, created_at, seq);
CREATE INDEX IF NOT EXISTS conversations_by_lo ON conversations (participant_lo, created_at);
CREATE INDEX IF NOT EXISTS conversations_by_hi ON conversations (participant_hi, created_at);
`

// foreign key violation
const pgErrForeignKey = "23503"

// PostgresStore implements Store on a pgx connection pool. The unique index
// on (participant_lo, participant_hi, item_id) is the sole serialization
// point for conversation creation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn and verifies it with a ping.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrCreateConversation(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error) {
	created := model.Conversation{
		ItemID:        conv.ItemID,
		ParticipantLo: conv.ParticipantLo,
		ParticipantHi: conv.ParticipantHi,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, item_id, participant_lo, participant_hi, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (participant_lo, participant_hi, item_id) DO NOTHING
		RETURNING id, created_at
	`, conv.ID, conv.ItemID, conv.ParticipantLo, conv.ParticipantHi, conv.CreatedAt).
		Scan(&created.ID, &created.CreatedAt)
	if err == nil {
		return &created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, unavailable("create conversation", err)
	}

	// Lost the race (or the row predates us); return the winner.
	existing := model.Conversation{}
	err = s.pool.QueryRow(ctx, `
		SELECT id, item_id, participant_lo, participant_hi, created_at
		FROM conversations
		WHERE participant_lo = $1 AND participant_hi = $2 AND item_id = $3
	`, conv.ParticipantLo, conv.ParticipantHi, conv.ItemID).
		Scan(&existing.ID, &existing.ItemID, &existing.ParticipantLo, &existing.ParticipantHi, &existing.CreatedAt)
	if err != nil {
		return nil, false, unavailable("lookup conversation", err)
	}
	return &existing, false, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conv := model.Conversation{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, item_id, participant_lo, participant_hi, created_at
		FROM conversations
		WHERE id = $1
	`, id).Scan(&conv.ID, &conv.ItemID, &conv.ParticipantLo, &conv.ParticipantHi, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get conversation", err)
	}
	return &conv, nil
}

func (s *PostgresStore) ListConversationsByParticipant(ctx context.Context, userID string) ([]model.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, participant_lo, participant_hi, created_at
		FROM conversations
		WHERE participant_lo = $1 OR participant_hi = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, unavailable("list conversations", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.ItemID, &c.ParticipantLo, &c.ParticipantHi, &c.CreatedAt); err != nil {
			return nil, unavailable("scan conversation", err)
		}
		convs = append(convs, c)
	}
	if rows.Err() != nil {
		return nil, unavailable("list conversations", rows.Err())
	}
	return convs, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	stored := *msg
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt).Scan(&stored.Seq)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrForeignKey {
			return nil, model.ErrNotFound
		}
		return nil, unavailable("append message", err)
	}
	return &stored, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at, seq
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC
	`, conversationID)
	if err != nil {
		return nil, unavailable("list messages", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.Seq); err != nil {
			return nil, unavailable("scan message", err)
		}
		msgs = append(msgs, m)
	}
	if rows.Err() != nil {
		return nil, unavailable("list messages", rows.Err())
	}
	return msgs, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func unavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, model.ErrStoreUnavailable, cause)
}
