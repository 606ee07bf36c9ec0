package domain

import (
	"fmt"
	"sort"
)

// DefaultTimeLimit applies to questions that do not set one.
const DefaultTimeLimit = 15

// Question models a multiple-choice question with exactly one correct option.
type Question struct {
	ID           string   `json:"id" yaml:"id"`
	SessionID    int      `json:"sessionId" yaml:"-"`
	Position     int      `json:"position" yaml:"-"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correct_index"`
	TimeLimit    int      `json:"timeLimit" yaml:"time_limit"` // seconds
}

// PublicQuestion is what participants see: the correct option is withheld.
type PublicQuestion struct {
	ID        string   `json:"id"`
	SessionID int      `json:"sessionId"`
	Position  int      `json:"position"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
}

// Public strips the correct answer.
func (q Question) Public() PublicQuestion {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return PublicQuestion{
		ID:        q.ID,
		SessionID: q.SessionID,
		Position:  q.Position,
		Prompt:    q.Prompt,
		Options:   opts,
		TimeLimit: q.TimeLimit,
	}
}

// Session is a named, ordered group of questions forming one round.
type Session struct {
	ID        int        `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Catalog is the static set of sessions, ordered by session id.
type Catalog struct {
	Sessions []Session `json:"sessions" yaml:"sessions"`
}

// Session looks up a session by id.
func (c Catalog) Session(id int) (Session, bool) {
	for _, s := range c.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// Normalize sorts sessions, fills ownership and positions, applies the default time
// limit and validates the result. The returned catalog shares no slices with c.
func (c Catalog) Normalize() (Catalog, error) {
	out := Catalog{Sessions: make([]Session, len(c.Sessions))}
	seenSessions := make(map[int]bool, len(c.Sessions))
	seenQuestions := make(map[string]bool)

	for i, s := range c.Sessions {
		if seenSessions[s.ID] {
			return Catalog{}, fmt.Errorf("%w: duplicate session id %d", ErrInvalidCatalog, s.ID)
		}
		seenSessions[s.ID] = true

		questions := make([]Question, len(s.Questions))
		for j, q := range s.Questions {
			if q.ID == "" {
				return Catalog{}, fmt.Errorf("%w: session %d question %d has no id", ErrInvalidCatalog, s.ID, j+1)
			}
			if seenQuestions[q.ID] {
				return Catalog{}, fmt.Errorf("%w: duplicate question id %q", ErrInvalidCatalog, q.ID)
			}
			seenQuestions[q.ID] = true
			if len(q.Options) < 2 {
				return Catalog{}, fmt.Errorf("%w: question %q needs at least 2 options", ErrInvalidCatalog, q.ID)
			}
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
				return Catalog{}, fmt.Errorf("%w: question %q correct index %d out of range", ErrInvalidCatalog, q.ID, q.CorrectIndex)
			}
			if q.TimeLimit < 0 {
				return Catalog{}, fmt.Errorf("%w: question %q has negative time limit", ErrInvalidCatalog, q.ID)
			}
			if q.TimeLimit == 0 {
				q.TimeLimit = DefaultTimeLimit
			}
			q.SessionID = s.ID
			q.Position = j
			q.Options = append([]string(nil), q.Options...)
			questions[j] = q
		}
		s.Questions = questions
		out.Sessions[i] = s
	}

	sort.SliceStable(out.Sessions, func(i, j int) bool {
		return out.Sessions[i].ID < out.Sessions[j].ID
	})
	return out, nil
}

// SampleCatalog is the built-in catalog served when no other source is configured.
func SampleCatalog() Catalog {
	return Catalog{
		Sessions: []Session{
			{
				ID:   1,
				Name: "General Knowledge",
				Questions: []Question{
					{
						ID:           "q1",
						Prompt:       "What is the capital of France?",
						Options:      []string{"London", "Berlin", "Paris", "Madrid"},
						CorrectIndex: 2,
						TimeLimit:    15,
					},
					{
						ID:           "q2",
						Prompt:       "Which planet is known as the Red Planet?",
						Options:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
						CorrectIndex: 1,
						TimeLimit:    15,
					},
				},
			},
			{ID: 2, Name: "Literature"},
			{ID: 3, Name: "Science"},
		},
	}
}
