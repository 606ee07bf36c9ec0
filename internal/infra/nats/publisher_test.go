package nats

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"live-quiz-service/internal/domain"
)

func TestSubject(t *testing.T) {
	ev := domain.Event{Type: domain.EventQuestionDisplayed, Audience: domain.AudienceAdmin}
	if got := Subject("quiz.events", ev); got != "quiz.events.admin.question-displayed" {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := Subject("", ev); got != "admin.question-displayed" {
		t.Fatalf("unexpected subject without prefix %q", got)
	}
}

func TestEncodeCarriesEventAndDedupHeader(t *testing.T) {
	ev := domain.Event{
		ID:       "evt-1",
		Seq:      7,
		Type:     domain.EventLeaderboardChanged,
		Audience: domain.AudienceAll,
		Payload:  []domain.LeaderboardEntry{{Identity: "a@x", Score: 20, Rank: 1}},
	}
	msg, err := Encode("quiz.events", ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if msg.Subject != "quiz.events.all.leaderboard-changed" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if got := msg.Header.Get(nats.MsgIdHdr); got != "evt-1" {
		t.Fatalf("expected dedup header evt-1, got %q", got)
	}

	var decoded struct {
		Seq     uint64                    `json:"seq"`
		Type    string                    `json:"type"`
		Payload []domain.LeaderboardEntry `json:"payload"`
	}
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Seq != 7 || decoded.Type != "leaderboard-changed" || len(decoded.Payload) != 1 {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}
