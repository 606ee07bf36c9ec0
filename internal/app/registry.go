package app

import (
	"strings"
	"time"

	"live-quiz-service/internal/domain"
)

// NormalizeIdentity canonicalizes an identity key (an email address in practice).
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// registry tracks registered participants in registration order.
// It is not safe for concurrent use; the engine lock guards it.
type registry struct {
	byIdentity map[string]*domain.Participant
	order      []*domain.Participant
	nextSeq    int
}

func newRegistry() *registry {
	return &registry{byIdentity: make(map[string]*domain.Participant)}
}

// register returns the participant for identity, creating it when unknown.
// The bool reports whether a new participant was created.
func (r *registry) register(name, identity string, now time.Time) (domain.Participant, bool, error) {
	name = strings.TrimSpace(name)
	identity = NormalizeIdentity(identity)
	if name == "" || identity == "" {
		return domain.Participant{}, false, domain.ErrInvalidParticipant
	}
	if existing, ok := r.byIdentity[identity]; ok {
		return *existing, false, nil
	}

	r.nextSeq++
	p := &domain.Participant{
		Identity:     identity,
		Name:         name,
		Seq:          r.nextSeq,
		RegisteredAt: now,
	}
	r.byIdentity[identity] = p
	r.order = append(r.order, p)
	return *p, true, nil
}

func (r *registry) get(identity string) (*domain.Participant, bool) {
	p, ok := r.byIdentity[NormalizeIdentity(identity)]
	return p, ok
}

func (r *registry) list() []domain.Participant {
	out := make([]domain.Participant, len(r.order))
	for i, p := range r.order {
		out[i] = *p
	}
	return out
}

func (r *registry) resetScores() {
	for _, p := range r.order {
		p.Score = 0
	}
}

func (r *registry) len() int {
	return len(r.order)
}
