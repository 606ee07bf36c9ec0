package broadcast

import (
	"testing"

	"live-quiz-service/internal/domain"
)

func TestHubRoutesByAudience(t *testing.T) {
	hub := NewHub(8)
	participant := hub.Subscribe(false)
	admin := hub.Subscribe(true)
	tap := hub.SubscribeAll(0)
	defer participant.Close()
	defer admin.Close()
	defer tap.Close()

	hub.Publish(
		domain.Event{Seq: 1, Type: domain.EventStateChanged, Audience: domain.AudienceAll},
		domain.Event{Seq: 2, Type: domain.EventQuestionDisplayed, Audience: domain.AudienceParticipants},
		domain.Event{Seq: 3, Type: domain.EventQuestionDisplayed, Audience: domain.AudienceAdmin},
	)

	assertSeqs(t, participant, 1, 2)
	assertSeqs(t, admin, 1, 3)
	assertSeqs(t, tap, 1, 2, 3)
}

func TestHubDropsOldestForSlowSubscriber(t *testing.T) {
	hub := NewHub(2)
	sub := hub.Subscribe(false)
	defer sub.Close()

	for i := uint64(1); i <= 5; i++ {
		hub.Publish(domain.Event{Seq: i, Audience: domain.AudienceAll})
	}

	assertSeqs(t, sub, 4, 5)
	if sub.Dropped() != 3 {
		t.Fatalf("expected 3 dropped events, got %d", sub.Dropped())
	}
}

func TestSetAdminSwitchesAudience(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe(false)
	defer sub.Close()

	sub.SetAdmin(true)
	hub.Publish(
		domain.Event{Seq: 1, Audience: domain.AudienceParticipants},
		domain.Event{Seq: 2, Audience: domain.AudienceAdmin},
	)
	assertSeqs(t, sub, 2)
}

func TestCloseStopsDelivery(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe(false)
	sub.Close()
	sub.Close()

	hub.Publish(domain.Event{Seq: 1, Audience: domain.AudienceAll})
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected closed channel")
	}
	if hub.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Len())
	}
}

func assertSeqs(t *testing.T, sub *Subscription, want ...uint64) {
	t.Helper()
	for _, seq := range want {
		select {
		case evt := <-sub.Events():
			if evt.Seq != seq {
				t.Fatalf("expected seq %d, got %d", seq, evt.Seq)
			}
		default:
			t.Fatalf("expected seq %d, queue empty", seq)
		}
	}
	select {
	case evt := <-sub.Events():
		t.Fatalf("unexpected extra event %d", evt.Seq)
	default:
	}
}
