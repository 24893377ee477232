package chat

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, t Thread, m Message) (Message, error) {
	m.Thread = t.ID()
	var id int64
	err := s.db.QueryRow(ctx, `
        INSERT INTO messages (thread_id, ride_id, sender_id, sender_name, body, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`,
		m.Thread, string(m.RideID), string(m.SenderID), m.SenderName, m.Text, m.CreatedAt,
	).Scan(&id)
	if err != nil {
		return Message{}, fmt.Errorf("append message to %s: %w", m.Thread, err)
	}
	m.ID = strconv.FormatInt(id, 10)
	return m, nil
}

func (s *PostgresStore) List(ctx context.Context, t Thread, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistory
	}
	rows, err := s.db.Query(ctx, `
        SELECT id, thread_id, ride_id, sender_id, sender_name, body, created_at
        FROM (
            SELECT * FROM messages WHERE thread_id = $1
            ORDER BY created_at DESC, id DESC LIMIT $2
        ) latest
        ORDER BY created_at ASC, id ASC`, t.ID(), limit)
	if err != nil {
		return nil, fmt.Errorf("list messages %s: %w", t.ID(), err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var id int64
		if err := rows.Scan(&id, &m.Thread, &m.RideID, &m.SenderID, &m.SenderName, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ID = strconv.FormatInt(id, 10)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteThread(ctx context.Context, t Thread) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM messages WHERE thread_id = $1`, t.ID()); err != nil {
		return fmt.Errorf("delete thread %s: %w", t.ID(), err)
	}
	return nil
}
