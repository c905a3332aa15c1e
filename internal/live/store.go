package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Store talks to the hosted document database. All mutations publish a
// change signal on the collaboration's channel so open subscriptions can
// re-read the full snapshot.
type Store struct {
	client *redis.Client
}

// Open connects to the document database at redisURL.
func Open(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func collabKey(id string) string        { return "collab:" + id }
func noteOrderKey(id string) string     { return "collab:" + id + ":noteorder" }
func notesKey(id string) string         { return "collab:" + id + ":notes" }
func participantsKey(id string) string  { return "collab:" + id + ":participants" }
func changedChannel(id string) string   { return "collab:" + id + ":changed" }

// Change-signal kinds published on the collaboration channel.
const (
	signalCollab       = "collab"
	signalNotes        = "notes"
	signalParticipants = "participants"
)

func (s *Store) publish(ctx context.Context, collaborationID, kind string) {
	// Fire-and-forget: a lost signal only delays the next snapshot, the
	// authoritative state is still in the store.
	_ = s.client.Publish(ctx, changedChannel(collaborationID), kind).Err()
}

// CreateCollaboration writes a new collaboration document.
func (s *Store) CreateCollaboration(ctx context.Context, record Collaboration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal collaboration: %w", err)
	}
	if err := s.client.Set(ctx, collabKey(record.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("write collaboration: %w", err)
	}
	s.publish(ctx, record.ID, signalCollab)
	return nil
}

// GetCollaboration reads the collaboration document, or ErrNotFound.
func (s *Store) GetCollaboration(ctx context.Context, id string) (Collaboration, error) {
	raw, err := s.client.Get(ctx, collabKey(id)).Result()
	if err == redis.Nil {
		return Collaboration{}, ErrNotFound
	}
	if err != nil {
		return Collaboration{}, fmt.Errorf("read collaboration: %w", err)
	}
	var record Collaboration
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Collaboration{}, fmt.Errorf("decode collaboration: %w", err)
	}
	return record, nil
}

// UpdateCollaboration applies mutate to the current document and writes the
// result back. Last writer wins across concurrent updates, matching the
// document database's per-document write semantics.
func (s *Store) UpdateCollaboration(ctx context.Context, id string, mutate func(*Collaboration) error) error {
	record, err := s.GetCollaboration(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(&record); err != nil {
		return err
	}
	record.ID = id
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal collaboration: %w", err)
	}
	if err := s.client.Set(ctx, collabKey(id), payload, 0).Err(); err != nil {
		return fmt.Errorf("write collaboration: %w", err)
	}
	s.publish(ctx, id, signalCollab)
	return nil
}

// AppendNote adds a note at the end of the collaboration's arrival order.
func (s *Store) AppendNote(ctx context.Context, note Note) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal note: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, notesKey(note.CollaborationID), note.ID, payload)
	pipe.RPush(ctx, noteOrderKey(note.CollaborationID), note.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append note: %w", err)
	}
	s.publish(ctx, note.CollaborationID, signalNotes)
	return nil
}

// GetNote reads one note document, or ErrNotFound.
func (s *Store) GetNote(ctx context.Context, collaborationID, noteID string) (Note, error) {
	raw, err := s.client.HGet(ctx, notesKey(collaborationID), noteID).Result()
	if err == redis.Nil {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("read note: %w", err)
	}
	var note Note
	if err := json.Unmarshal([]byte(raw), &note); err != nil {
		return Note{}, fmt.Errorf("decode note: %w", err)
	}
	return note, nil
}

// UpdateNote applies mutate to one note document and writes it back.
func (s *Store) UpdateNote(ctx context.Context, collaborationID, noteID string, mutate func(*Note) error) error {
	note, err := s.GetNote(ctx, collaborationID, noteID)
	if err != nil {
		return err
	}
	if err := mutate(&note); err != nil {
		return err
	}
	note.ID = noteID
	note.CollaborationID = collaborationID
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal note: %w", err)
	}
	if err := s.client.HSet(ctx, notesKey(collaborationID), noteID, payload).Err(); err != nil {
		return fmt.Errorf("write note: %w", err)
	}
	s.publish(ctx, collaborationID, signalNotes)
	return nil
}

// ListNotes returns the full note list in arrival order. Notes missing from
// the order index (or vice versa) are tolerated and skipped.
func (s *Store) ListNotes(ctx context.Context, collaborationID string) ([]Note, error) {
	order, err := s.client.LRange(ctx, noteOrderKey(collaborationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read note order: %w", err)
	}
	if len(order) == 0 {
		return []Note{}, nil
	}
	docs, err := s.client.HGetAll(ctx, notesKey(collaborationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read notes: %w", err)
	}
	notes := make([]Note, 0, len(order))
	for _, id := range order {
		raw, ok := docs[id]
		if !ok {
			continue
		}
		var note Note
		if err := json.Unmarshal([]byte(raw), &note); err != nil {
			continue
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// UpsertParticipant writes one roster entry keyed by user id.
func (s *Store) UpsertParticipant(ctx context.Context, collaborationID string, p Participant) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal participant: %w", err)
	}
	if err := s.client.HSet(ctx, participantsKey(collaborationID), p.UserID, payload).Err(); err != nil {
		return fmt.Errorf("write participant: %w", err)
	}
	s.publish(ctx, collaborationID, signalParticipants)
	return nil
}

// GetParticipant reads one roster entry, or ErrNotFound.
func (s *Store) GetParticipant(ctx context.Context, collaborationID, userID string) (Participant, error) {
	raw, err := s.client.HGet(ctx, participantsKey(collaborationID), userID).Result()
	if err == redis.Nil {
		return Participant{}, ErrNotFound
	}
	if err != nil {
		return Participant{}, fmt.Errorf("read participant: %w", err)
	}
	var p Participant
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Participant{}, fmt.Errorf("decode participant: %w", err)
	}
	return p, nil
}

// ListParticipants returns the roster ordered by request time, then user id
// for identical timestamps.
func (s *Store) ListParticipants(ctx context.Context, collaborationID string) ([]Participant, error) {
	docs, err := s.client.HGetAll(ctx, participantsKey(collaborationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read participants: %w", err)
	}
	roster := make([]Participant, 0, len(docs))
	for _, raw := range docs {
		var p Participant
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		roster = append(roster, p)
	}
	sort.Slice(roster, func(i, j int) bool {
		if !roster[i].RequestedAt.Equal(roster[j].RequestedAt) {
			return roster[i].RequestedAt.Before(roster[j].RequestedAt)
		}
		return roster[i].UserID < roster[j].UserID
	})
	return roster, nil
}
