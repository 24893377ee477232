// README: Ride store backed by PostgreSQL; writes are compare-and-swap on the version column.
package ride

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"ridepool/internal/types"
)

const rideColumns = `
    id, route_from, route_to, ride_date, ride_time, vehicle,
    host_id, host_name, host_avatar, passengers, waitlist,
    ladies_only, paused, force_allow, created_at, version`

type PostgresStore struct {
	db       *pgxpool.Pool
	notifier Notifier
	log      logrus.FieldLogger
}

// NewPostgresStore returns a store that announces changes through notifier.
// A nil notifier keeps change delivery in-process.
func NewPostgresStore(db *pgxpool.Pool, notifier Notifier, log logrus.FieldLogger) *PostgresStore {
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PostgresStore{db: db, notifier: notifier, log: log}
}

func (s *PostgresStore) Create(ctx context.Context, r *Ride) error {
	passengers, waitlist, err := encodeMembers(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO rides (
            id, route_from, route_to, ride_date, ride_time, vehicle,
            host_id, host_name, host_avatar, passengers, waitlist,
            ladies_only, paused, force_allow, created_at, version
        ) VALUES (
            $1, $2, $3, $4, $5, $6,
            $7, $8, $9, $10::jsonb, $11::jsonb,
            $12, $13, $14, $15, 0
        )`,
		string(r.ID), r.Route.From, r.Route.To, r.Schedule.Date, r.Schedule.Time, string(r.Vehicle),
		string(r.Host.ID), r.Host.DisplayName, r.Host.AvatarRef, passengers, waitlist,
		r.LadiesOnly, r.Paused, r.ForceAllow, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	s.publish(ctx, Change{Kind: ChangeUpserted, RideID: r.ID, Ride: r.Clone()})
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT`+rideColumns+` FROM rides WHERE id = $1`, string(id))
	r, err := scanRide(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ride %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Ride, error) {
	rows, err := s.db.Query(ctx, `SELECT`+rideColumns+` FROM rides ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()

	var out []*Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Update reads the row, applies fn and writes back only if nobody bumped the
// version in between. A lost race returns ErrConflict.
func (s *PostgresStore) Update(ctx context.Context, id types.ID, fn TransformFunc) (*Ride, Mutation, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, MutationNone, err
	}
	next := cur.Clone()
	m, err := fn(next)
	if err != nil {
		return nil, MutationNone, err
	}

	switch m {
	case MutationWrite:
		passengers, waitlist, err := encodeMembers(next)
		if err != nil {
			return nil, MutationNone, err
		}
		tag, err := s.db.Exec(ctx, `
            UPDATE rides
            SET host_id = $1,
                host_name = $2,
                host_avatar = $3,
                passengers = $4::jsonb,
                waitlist = $5::jsonb,
                paused = $6,
                force_allow = $7,
                version = version + 1
            WHERE id = $8 AND version = $9`,
			string(next.Host.ID), next.Host.DisplayName, next.Host.AvatarRef,
			passengers, waitlist, next.Paused, next.ForceAllow,
			string(id), cur.Version,
		)
		if err != nil {
			return nil, MutationNone, fmt.Errorf("update ride %s: %w", id, err)
		}
		if tag.RowsAffected() != 1 {
			return nil, MutationNone, ErrConflict
		}
		next.ID = id
		next.Version = cur.Version + 1
		s.publish(ctx, Change{Kind: ChangeUpserted, RideID: id, Ride: next.Clone()})
		return next, m, nil
	case MutationDelete:
		tag, err := s.db.Exec(ctx, `DELETE FROM rides WHERE id = $1 AND version = $2`, string(id), cur.Version)
		if err != nil {
			return nil, MutationNone, fmt.Errorf("delete ride %s: %w", id, err)
		}
		if tag.RowsAffected() != 1 {
			return nil, MutationNone, ErrConflict
		}
		s.publish(ctx, Change{Kind: ChangeDeleted, RideID: id})
		return nil, m, nil
	default:
		return cur, MutationNone, nil
	}
}

func (s *PostgresStore) Subscribe(ctx context.Context) (<-chan Change, error) {
	return s.notifier.Subscribe(ctx)
}

// publish is best effort; the write has already committed.
func (s *PostgresStore) publish(ctx context.Context, c Change) {
	if err := s.notifier.Publish(ctx, c); err != nil {
		s.log.WithError(err).WithField("ride_id", c.RideID).Warn("publish ride change")
	}
}

func scanRide(row pgx.Row) (*Ride, error) {
	var r Ride
	var passengers, waitlist []byte
	err := row.Scan(
		&r.ID, &r.Route.From, &r.Route.To, &r.Schedule.Date, &r.Schedule.Time, &r.Vehicle,
		&r.Host.ID, &r.Host.DisplayName, &r.Host.AvatarRef, &passengers, &waitlist,
		&r.LadiesOnly, &r.Paused, &r.ForceAllow, &r.CreatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(passengers, &r.Passengers); err != nil {
		return nil, fmt.Errorf("decode passengers: %w", err)
	}
	if err := json.Unmarshal(waitlist, &r.Waitlist); err != nil {
		return nil, fmt.Errorf("decode waitlist: %w", err)
	}
	return &r, nil
}

func encodeMembers(r *Ride) (string, string, error) {
	p := r.Passengers
	if p == nil {
		p = []ActorSummary{}
	}
	w := r.Waitlist
	if w == nil {
		w = []ActorSummary{}
	}
	pb, err := json.Marshal(p)
	if err != nil {
		return "", "", fmt.Errorf("encode passengers: %w", err)
	}
	wb, err := json.Marshal(w)
	if err != nil {
		return "", "", fmt.Errorf("encode waitlist: %w", err)
	}
	return string(pb), string(wb), nil
}
