package domain

import "time"

// Status is the phase of the quiz as a whole.
type Status string

const (
	StatusWaiting     Status = "waiting"
	StatusQuestion    Status = "question"
	StatusReviewing   Status = "reviewing"
	StatusLeaderboard Status = "leaderboard"
	StatusFinished    Status = "finished"
)

// SessionStatus is the lifecycle of a single session within the quiz.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Participant represents a registered player and their accumulated score.
type Participant struct {
	Identity     string    `json:"identity"`
	Name         string    `json:"name"`
	Score        int       `json:"score"`
	Seq          int       `json:"-"` // registration order, used as the final tie-break
	RegisteredAt time.Time `json:"registeredAt"`
}

// AnswerRecord is the single accepted answer of a participant to a question.
type AnswerRecord struct {
	Identity      string    `json:"identity"`
	QuestionID    string    `json:"questionId"`
	SessionID     int       `json:"sessionId"`
	OptionIndex   int       `json:"optionIndex"`
	Correct       bool      `json:"correct"`
	ElapsedMillis int64     `json:"elapsedMs"`
	Score         int       `json:"score"`
	Seq           int       `json:"seq"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// AnswerResult summarizes the outcome of a submission for the submitting user.
type AnswerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	TotalScore int    `json:"totalScore"`
}

// LeaderboardEntry is a derived, ranked view of a participant.
type LeaderboardEntry struct {
	Identity      string      `json:"identity"`
	Name          string      `json:"name"`
	Score         int         `json:"score"`
	Rank          int         `json:"rank"`
	CorrectMillis int64       `json:"correctMs"`
	SessionScores map[int]int `json:"sessionScores"`
}

// SessionSummary describes a catalog session and where it is in its lifecycle.
type SessionSummary struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	Status        SessionStatus `json:"status"`
	QuestionCount int           `json:"questionCount"`
}

// Snapshot is the authoritative quiz state as seen by clients.
// Question is set while a question is displayed or under review; RevealedIndex only
// while reviewing.
type Snapshot struct {
	Version          uint64           `json:"version"`
	Status           Status           `json:"status"`
	SessionID        int              `json:"sessionId"`
	SessionName      string           `json:"sessionName,omitempty"`
	QuestionIndex    int              `json:"questionIndex"`
	TotalQuestions   int              `json:"totalQuestions"`
	Remaining        int              `json:"remaining"`
	Question         *PublicQuestion  `json:"question,omitempty"`
	RevealedIndex    *int             `json:"revealedIndex,omitempty"`
	ParticipantCount int              `json:"participantCount"`
	Sessions         []SessionSummary `json:"sessions"`
	// QuestionStartedAt is when the displayed question opened, set while a question is
	// displayed or under review. Clients measure elapsedMs from it.
	QuestionStartedAt *time.Time `json:"questionStartedAt,omitempty"`
}

// LeaderboardRecord is the final standings of one completed session.
type LeaderboardRecord struct {
	SessionID   int                `json:"sessionId"`
	SessionName string             `json:"sessionName"`
	Entries     []LeaderboardEntry `json:"entries"`
	RecordedAt  time.Time          `json:"recordedAt"`
}
