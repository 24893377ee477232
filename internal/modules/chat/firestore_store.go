// README: Firestore chat store; group messages live under rides/{id}/messages, private ones under private_chats/{pair}/messages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"ridepool/internal/types"
)

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) messages(t Thread) *firestore.CollectionRef {
	if t.Kind == ThreadGroup {
		return s.client.Collection("rides").Doc(t.Key).Collection("messages")
	}
	return s.client.Collection("private_chats").Doc(t.Key).Collection("messages")
}

func (s *FirestoreStore) Append(ctx context.Context, t Thread, m Message) (Message, error) {
	ref := s.messages(t).NewDoc()
	m.ID = ref.ID
	m.Thread = t.ID()
	if _, err := ref.Create(ctx, map[string]interface{}{
		"text":       m.Text,
		"senderId":   string(m.SenderID),
		"senderName": m.SenderName,
		"rideId":     string(m.RideID),
		"createdAt":  m.CreatedAt,
	}); err != nil {
		return Message{}, fmt.Errorf("append message to %s: %w", m.Thread, err)
	}
	return m, nil
}

func (s *FirestoreStore) List(ctx context.Context, t Thread, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistory
	}
	it := s.messages(t).OrderBy("createdAt", firestore.Desc).Limit(limit).Documents(ctx)
	defer it.Stop()

	var newest []Message
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list messages %s: %w", t.ID(), err)
		}
		newest = append(newest, messageFromFirestore(t, snap.Ref.ID, snap.Data()))
	}

	out := make([]Message, len(newest))
	for i, m := range newest {
		out[len(newest)-1-i] = m
	}
	return out, nil
}

func messageFromFirestore(t Thread, id string, data map[string]interface{}) Message {
	m := Message{ID: id, Thread: t.ID()}
	m.Text, _ = data["text"].(string)
	m.SenderName, _ = data["senderName"].(string)
	if v, ok := data["senderId"].(string); ok {
		m.SenderID = types.ID(v)
	}
	if v, ok := data["rideId"].(string); ok {
		m.RideID = types.ID(v)
	} else if t.Kind == ThreadGroup {
		m.RideID = types.ID(t.Key)
	}
	if v, ok := data["createdAt"].(time.Time); ok {
		m.CreatedAt = v
	}
	return m
}

// DeleteThread deletes the thread's message documents. The parent ride or
// pair document is left alone.
func (s *FirestoreStore) DeleteThread(ctx context.Context, t Thread) error {
	it := s.messages(t).DocumentRefs(ctx)
	bw := s.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		ref, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			bw.End()
			return fmt.Errorf("delete thread %s: %w", t.ID(), err)
		}
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("delete thread %s: %w", t.ID(), err)
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("delete thread %s: %w", t.ID(), err)
		}
	}
	return nil
}
