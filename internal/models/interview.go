package models

import (
	"log/slog"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
)

const (
	MinScore = 0
	MaxScore = 10
)

var ErrInvalidEvaluation = errors.NewSentinel("invalid evaluation")

// Answer is the finalised transcript of the candidate's reply to one question.
type Answer struct {
	Question string `json:"question"`
	Text     string `json:"text"`
	// AudioURL points to a recording of the answer when one was uploaded. Recordings are not uploaded by default.
	AudioURL  string    `json:"audioUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Scores holds the five evaluation categories, each within [MinScore, MaxScore].
type Scores struct {
	Communication  float64 `json:"communication"`
	ProblemSolving float64 `json:"problemSolving"`
	TechnicalDepth float64 `json:"technicalDepth"`
	CultureFit     float64 `json:"cultureFit"`
	ClarityBrevity float64 `json:"clarityBrevity"`
}

// Evaluation is the structured scoring of a finished interview.
type Evaluation struct {
	Summary string `json:"summary"`
	Scores  Scores `json:"scores"`
}

// Interview is the durable record of one interview.
type Interview struct {
	ID          string      `json:"id"`
	CandidateID string      `json:"candidateId"`
	Topic       string      `json:"topic"`
	Questions   []string    `json:"questions"`
	Answers     []Answer    `json:"answers"`
	Evaluation  *Evaluation `json:"evaluation,omitempty"`
	Created     time.Time   `json:"created"`
}

// Named returns the scores paired with their display names in a stable order.
func (s Scores) Named() []NamedScore {
	return []NamedScore{
		{Name: "Communication", Value: s.Communication},
		{Name: "Problem solving", Value: s.ProblemSolving},
		{Name: "Technical depth", Value: s.TechnicalDepth},
		{Name: "Culture fit", Value: s.CultureFit},
		{Name: "Clarity and brevity", Value: s.ClarityBrevity},
	}
}

type NamedScore struct {
	Name  string
	Value float64
}

// Validate checks that every score is within range and that the summary fits in maxSummaryLength runes.
// A maxSummaryLength of zero disables the length check.
func (e Evaluation) Validate(maxSummaryLength int) error {
	var errs []error
	for _, score := range e.Scores.Named() {
		if score.Value < MinScore || score.Value > MaxScore {
			errs = append(errs, errors.Wrap(ErrInvalidEvaluation, "score out of range",
				slog.String("category", score.Name), slog.Float64("score", score.Value)))
		}
	}
	if maxSummaryLength > 0 && len([]rune(e.Summary)) > maxSummaryLength {
		errs = append(errs, errors.Wrap(ErrInvalidEvaluation, "summary too long",
			slog.Int("length", len([]rune(e.Summary))), slog.Int("max", maxSummaryLength)))
	}
	return errors.Join(errs...)
}

// AnswerText returns the transcript for question i, or an empty string when the question was not answered.
func (iv Interview) AnswerText(i int) string {
	if i < 0 || i >= len(iv.Answers) {
		return ""
	}
	return iv.Answers[i].Text
}
