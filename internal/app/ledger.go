package app

import "live-quiz-service/internal/domain"

type answerKey struct {
	identity   string
	questionID string
}

// ledger is the append-only record of accepted answers, one per (identity, question).
// It is not safe for concurrent use; the engine lock guards it.
type ledger struct {
	index   map[answerKey]struct{}
	entries []domain.AnswerRecord
}

func newLedger() *ledger {
	return &ledger{index: make(map[answerKey]struct{})}
}

func (l *ledger) has(identity, questionID string) bool {
	_, ok := l.index[answerKey{identity: identity, questionID: questionID}]
	return ok
}

// append stores rec and returns it with its sequence number set.
// Callers check has first; a duplicate key is never overwritten.
func (l *ledger) append(rec domain.AnswerRecord) (domain.AnswerRecord, bool) {
	key := answerKey{identity: rec.Identity, questionID: rec.QuestionID}
	if _, ok := l.index[key]; ok {
		return domain.AnswerRecord{}, false
	}
	rec.Seq = len(l.entries) + 1
	l.index[key] = struct{}{}
	l.entries = append(l.entries, rec)
	return rec, true
}

func (l *ledger) all() []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ledger) clear() {
	l.index = make(map[answerKey]struct{})
	l.entries = nil
}
