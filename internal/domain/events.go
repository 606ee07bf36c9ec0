package domain

import "time"

// EventType identifies a broadcast event.
type EventType string

const (
	EventParticipantsChanged EventType = "participant-list-changed"
	EventStateChanged        EventType = "state-changed"
	EventQuestionDisplayed   EventType = "question-displayed"
	EventLeaderboardChanged  EventType = "leaderboard-changed"
	EventQuizReset           EventType = "quiz-reset"
	EventAnswerRecorded      EventType = "answer-recorded"
)

// Audience restricts which subscribers receive an event.
type Audience string

const (
	AudienceAll          Audience = "all"
	AudienceParticipants Audience = "participants"
	AudienceAdmin        Audience = "admin"
)

// Event is emitted once per committed mutation.
type Event struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Audience  Audience  `json:"audience"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// AdminQuestion is the admin variant of question-displayed; it carries the answer.
type AdminQuestion struct {
	PublicQuestion
	CorrectIndex int `json:"correctIndex"`
}

// EventSink receives committed events. Publish is called with the engine lock held and
// must not block.
type EventSink interface {
	Publish(events ...Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(events ...Event)

func (f EventSinkFunc) Publish(events ...Event) { f(events...) }
