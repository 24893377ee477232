// README: Ride store backed by Cloud Firestore, compatible with the web client's "rides" documents.
package ride

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ridepool/internal/types"
)

const ridesCollection = "rides"

type FirestoreStore struct {
	client *firestore.Client
	log    logrus.FieldLogger
}

func NewFirestoreStore(client *firestore.Client, log logrus.FieldLogger) *FirestoreStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FirestoreStore{client: client, log: log}
}

func (s *FirestoreStore) doc(id types.ID) *firestore.DocumentRef {
	return s.client.Collection(ridesCollection).Doc(string(id))
}

func (s *FirestoreStore) Create(ctx context.Context, r *Ride) error {
	if _, err := s.doc(r.ID).Create(ctx, toFirestore(r)); err != nil {
		return fmt.Errorf("create ride %s: %w", r.ID, err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ride %s: %w", id, err)
	}
	return fromFirestore(snap.Ref.ID, snap.Data()), nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]*Ride, error) {
	it := s.client.Collection(ridesCollection).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer it.Stop()

	var out []*Ride
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list rides: %w", err)
		}
		out = append(out, fromFirestore(snap.Ref.ID, snap.Data()))
	}
	return out, nil
}

// Update runs fn inside a single-attempt Firestore transaction; contention
// surfaces as ErrConflict so the engine owns the retry budget.
func (s *FirestoreStore) Update(ctx context.Context, id types.ID, fn TransformFunc) (*Ride, Mutation, error) {
	ref := s.doc(id)
	var out *Ride
	var mut Mutation
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		out, mut = nil, MutationNone
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		cur := fromFirestore(ref.ID, snap.Data())
		next := cur.Clone()
		m, err := fn(next)
		if err != nil {
			return err
		}
		switch m {
		case MutationWrite:
			next.ID = id
			next.Version = cur.Version + 1
			out, mut = next, m
			return tx.Set(ref, toFirestore(next), firestore.MergeAll)
		case MutationDelete:
			mut = m
			return tx.Delete(ref)
		default:
			out = cur
			return nil
		}
	}, firestore.MaxAttempts(1))
	if err != nil {
		if status.Code(err) == codes.Aborted {
			return nil, MutationNone, ErrConflict
		}
		return nil, MutationNone, err
	}
	return out, mut, nil
}

// Subscribe streams Firestore query snapshots as changes. The first batch
// replays every existing ride as an upsert.
func (s *FirestoreStore) Subscribe(ctx context.Context) (<-chan Change, error) {
	it := s.client.Collection(ridesCollection).Snapshots(ctx)
	out := make(chan Change, subscriberBuffer)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) {
					s.log.WithError(err).Warn("ride snapshot listener stopped")
				}
				return
			}
			for _, ch := range qs.Changes {
				c := Change{RideID: types.ID(ch.Doc.Ref.ID)}
				if ch.Kind == firestore.DocumentRemoved {
					c.Kind = ChangeDeleted
				} else {
					c.Kind = ChangeUpserted
					c.Ride = fromFirestore(ch.Doc.Ref.ID, ch.Doc.Data())
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func toFirestore(r *Ride) map[string]interface{} {
	return map[string]interface{}{
		"from":        r.Route.From,
		"to":          r.Route.To,
		"date":        r.Schedule.Date,
		"time":        r.Schedule.Time,
		"vehicleType": string(r.Vehicle),
		"host":        r.Host.DisplayName,
		"hostId":      string(r.Host.ID),
		"hostPhoto":   r.Host.AvatarRef,
		"passengers":  membersToFirestore(r.Passengers),
		"waitlist":    membersToFirestore(r.Waitlist),
		"ladiesOnly":  r.LadiesOnly,
		"isPaused":    r.Paused,
		"forceAllow":  r.ForceAllow,
		"createdAt":   r.CreatedAt,
		"version":     int64(r.Version),
	}
}

func membersToFirestore(list []ActorSummary) []interface{} {
	out := make([]interface{}, 0, len(list))
	for _, a := range list {
		out = append(out, map[string]interface{}{
			"uid":   string(a.ID),
			"name":  a.DisplayName,
			"photo": a.AvatarRef,
		})
	}
	return out
}

// fromFirestore decodes a ride document. Older documents carry passengers as
// bare uid strings or as {uid,name,photo} maps; both become ActorSummary here
// and nowhere else.
func fromFirestore(id string, data map[string]interface{}) *Ride {
	r := &Ride{
		ID:       types.ID(id),
		Route:    Route{From: stringField(data, "from"), To: stringField(data, "to")},
		Schedule: Schedule{Date: stringField(data, "date"), Time: stringField(data, "time")},
		Vehicle:  vehicleFromFirestore(stringField(data, "vehicleType")),
		Host: ActorSummary{
			ID:          types.ID(stringField(data, "hostId")),
			DisplayName: stringField(data, "host"),
			AvatarRef:   stringField(data, "hostPhoto"),
		},
		LadiesOnly: boolField(data, "ladiesOnly"),
		Paused:     boolField(data, "isPaused"),
		ForceAllow: boolField(data, "forceAllow"),
	}
	if t, ok := data["createdAt"].(time.Time); ok {
		r.CreatedAt = t
	}
	if v, ok := data["version"].(int64); ok {
		r.Version = int(v)
	}

	seen := map[types.ID]bool{r.Host.ID: true}
	r.Passengers = normalizeMembers(data["passengers"], seen)
	r.Waitlist = normalizeMembers(data["waitlist"], seen)
	return r
}

// vehicleFromFirestore reads the web client's vehicle field, which treats
// anything other than Auto as a Cab.
func vehicleFromFirestore(v string) Vehicle {
	if Vehicle(v) == VehicleAuto {
		return VehicleAuto
	}
	return VehicleCab
}

// normalizeMembers keeps the first occurrence of each uid not already in seen
// and drops entries without a uid.
func normalizeMembers(raw interface{}, seen map[types.ID]bool) []ActorSummary {
	items, _ := raw.([]interface{})
	out := make([]ActorSummary, 0, len(items))
	for _, item := range items {
		var a ActorSummary
		switch v := item.(type) {
		case string:
			a.ID = types.ID(v)
		case map[string]interface{}:
			a.ID = types.ID(stringField(v, "uid"))
			a.DisplayName = stringField(v, "name")
			a.AvatarRef = stringField(v, "photo")
		}
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	return out
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func boolField(data map[string]interface{}, key string) bool {
	b, _ := data[key].(bool)
	return b
}
