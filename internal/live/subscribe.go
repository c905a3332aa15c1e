package live

import (
	"context"
	"log"
	"sync"
)

// subscribe opens a pub/sub subscription on the collaboration's change
// channel and runs emit once up front and once per matching change signal.
// All emit calls happen on one goroutine, so callbacks never overlap.
// The returned cancel func is idempotent and stops further delivery.
func (s *Store) subscribe(collaborationID, kind string, emit func(context.Context)) (func(), error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := s.client.Subscribe(ctx, changedChannel(collaborationID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, err
	}

	messages := pubsub.Channel()
	go func() {
		emit(ctx)
		for msg := range messages {
			if msg.Payload != kind {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			emit(ctx)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
			_ = pubsub.Close()
		})
	}
	return cancel, nil
}

// SubscribeCollaboration pushes a tagged snapshot of the collaboration
// record on every change. A missing record is delivered as CollabNotFound,
// never as an error.
func (s *Store) SubscribeCollaboration(collaborationID string, fn func(CollabSnapshot)) (func(), error) {
	return s.subscribe(collaborationID, signalCollab, func(ctx context.Context) {
		record, err := s.GetCollaboration(ctx, collaborationID)
		if err == ErrNotFound {
			fn(CollabSnapshot{State: CollabNotFound})
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("live: collaboration snapshot %s: %v", collaborationID, err)
			}
			return
		}
		fn(CollabSnapshot{State: CollabFound, Record: &record})
	})
}

// SubscribeNotes pushes the full ordered note list on every note change.
func (s *Store) SubscribeNotes(collaborationID string, fn func([]Note)) (func(), error) {
	return s.subscribe(collaborationID, signalNotes, func(ctx context.Context) {
		notes, err := s.ListNotes(ctx, collaborationID)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("live: notes snapshot %s: %v", collaborationID, err)
			}
			return
		}
		fn(notes)
	})
}

// SubscribeParticipants pushes the full roster on every roster change.
func (s *Store) SubscribeParticipants(collaborationID string, fn func([]Participant)) (func(), error) {
	return s.subscribe(collaborationID, signalParticipants, func(ctx context.Context) {
		roster, err := s.ListParticipants(ctx, collaborationID)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("live: participants snapshot %s: %v", collaborationID, err)
			}
			return
		}
		fn(roster)
	})
}
