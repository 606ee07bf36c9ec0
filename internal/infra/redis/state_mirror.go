package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

const (
	stateKey        = "quiz:state"
	leaderboardKey  = "quiz:leaderboard"
	participantsKey = "quiz:participants"
)

// StateMirror projects the event stream into Redis so dashboards can read the live quiz
// without a websocket. It is write-only: nothing reads these keys back at startup.
//
//	SET  quiz:state        {snapshot json}
//	SET  quiz:leaderboard  {entries json}
//	HSET quiz:participants {identity} {participant json}
type StateMirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateMirror(client *redis.Client, ttl time.Duration) *StateMirror {
	return &StateMirror{client: client, ttl: ttl}
}

// Run consumes events until ctx is cancelled or the channel closes.
func (m *StateMirror) Run(ctx context.Context, events <-chan domain.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := m.Apply(ctx, ev); err != nil {
				log.Warn().Err(err).Str("event", string(ev.Type)).Uint64("seq", ev.Seq).Msg("redis mirror write failed")
			}
		}
	}
}

// Apply writes one event.
func (m *StateMirror) Apply(ctx context.Context, ev domain.Event) error {
	switch ev.Type {
	case domain.EventStateChanged:
		return m.set(ctx, stateKey, ev.Payload)
	case domain.EventLeaderboardChanged:
		return m.set(ctx, leaderboardKey, ev.Payload)
	case domain.EventParticipantsChanged:
		participants, ok := ev.Payload.([]domain.Participant)
		if !ok {
			return nil
		}
		return m.replaceParticipants(ctx, participants)
	}
	return nil
}

func (m *StateMirror) set(ctx context.Context, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return m.client.Set(ctx, key, raw, m.ttl).Err()
}

func (m *StateMirror) replaceParticipants(ctx context.Context, participants []domain.Participant) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, participantsKey)
	for _, p := range participants {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal participant %s: %w", p.Identity, err)
		}
		pipe.HSet(ctx, participantsKey, p.Identity, raw)
	}
	if m.ttl > 0 && len(participants) > 0 {
		pipe.Expire(ctx, participantsKey, m.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Ping reports whether Redis is reachable.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
