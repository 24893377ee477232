// README: Firestore-backed profile store over the web client's "users" collection.
package profile

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ridepool/internal/types"
)

const usersCollection = "users"

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc(id types.ID) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(string(id))
}

func (s *FirestoreStore) Upsert(ctx context.Context, id Identity) (*Profile, error) {
	_, err := s.doc(id.ID).Set(ctx, map[string]interface{}{
		"name":      id.DisplayName,
		"photo":     id.AvatarRef,
		"updatedAt": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", id.ID, err)
	}
	return s.Get(ctx, id.ID)
}

func (s *FirestoreStore) Get(ctx context.Context, id types.ID) (*Profile, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	return profileFromFirestore(snap.Ref.ID, snap.Data()), nil
}

func (s *FirestoreStore) SetGenderOnce(ctx context.Context, id types.ID, g types.Gender) error {
	ref := s.doc(id)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if profileFromFirestore(ref.ID, snap.Data()).Gender != types.GenderUnset {
			return ErrGenderLocked
		}
		return tx.Set(ref, map[string]interface{}{
			"gender":    string(g),
			"updatedAt": firestore.ServerTimestamp,
		}, firestore.MergeAll)
	})
}

// profileFromFirestore ignores gender values other than Male and Female.
func profileFromFirestore(id string, data map[string]interface{}) *Profile {
	p := &Profile{ID: types.ID(id)}
	p.DisplayName, _ = data["name"].(string)
	p.AvatarRef, _ = data["photo"].(string)
	if g, ok := data["gender"].(string); ok && types.Gender(g).Valid() {
		p.Gender = types.Gender(g)
	}
	if t, ok := data["updatedAt"].(time.Time); ok {
		p.UpdatedAt = t
	}
	return p
}
