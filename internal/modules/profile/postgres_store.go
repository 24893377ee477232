// README: Postgres-backed profile store; gender is guarded in SQL so concurrent writers cannot both win.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridepool/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, id Identity) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
        INSERT INTO profiles (id, display_name, avatar_ref, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (id) DO UPDATE
        SET display_name = EXCLUDED.display_name,
            avatar_ref = EXCLUDED.avatar_ref,
            updated_at = NOW()
        RETURNING id, display_name, avatar_ref, COALESCE(gender, ''), updated_at`,
		string(id.ID), id.DisplayName, id.AvatarRef,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", id.ID, err)
	}
	return p, nil
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, display_name, avatar_ref, COALESCE(gender, ''), updated_at
        FROM profiles WHERE id = $1`, string(id))
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) SetGenderOnce(ctx context.Context, id types.ID, g types.Gender) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE profiles SET gender = $2, updated_at = NOW()
        WHERE id = $1 AND gender IS NULL`, string(id), string(g))
	if err != nil {
		return fmt.Errorf("set gender %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrGenderLocked
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.DisplayName, &p.AvatarRef, &p.Gender, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
