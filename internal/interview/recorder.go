package interview

import (
	"log/slog"
	"sync"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/models"
)

var (
	ErrTooManyAnswers   = errors.NewSentinel("more answers than questions")
	ErrQuestionMismatch = errors.NewSentinel("answer does not match the question at its index")
)

// Recorder accumulates the answers of one interview in question order. Appended answers are never modified.
type Recorder struct {
	mu        sync.RWMutex
	questions []string
	answers   []models.Answer
}

func NewRecorder(questions []string) *Recorder {
	return &Recorder{
		questions: questions,
		answers:   make([]models.Answer, 0, len(questions)),
	}
}

// Append adds the answer to the next unanswered question.
func (r *Recorder) Append(answer models.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := len(r.answers)
	if i >= len(r.questions) {
		return errors.Wrap(ErrTooManyAnswers, "append answer", slog.Int("questions", len(r.questions)))
	}
	if answer.Question != r.questions[i] {
		return errors.Wrap(ErrQuestionMismatch, "append answer",
			slog.Int("index", i), slog.String("question", answer.Question))
	}
	r.answers = append(r.answers, answer)
	return nil
}

// Snapshot returns a copy of the answers recorded so far.
func (r *Recorder) Snapshot() []models.Answer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	answers := make([]models.Answer, len(r.answers))
	copy(answers, r.answers)
	return answers
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.answers)
}
