package models_test

import (
	"strings"
	"testing"

	"github.com/Manty2503/demo-final/internal/models"
	"github.com/stretchr/testify/require"
)

func TestEvaluation_Validate(t *testing.T) {
	valid := models.Scores{Communication: 7, ProblemSolving: 6.5, TechnicalDepth: 8, CultureFit: 9, ClarityBrevity: 10}
	tests := []struct {
		name       string
		evaluation models.Evaluation
		maxSummary int
		wantErr    bool
	}{
		{
			name:       "valid",
			evaluation: models.Evaluation{Summary: "Solid answers.", Scores: valid},
			maxSummary: 100,
		},
		{
			name:       "boundaries are inclusive",
			evaluation: models.Evaluation{Summary: "", Scores: models.Scores{CultureFit: 10}},
		},
		{
			name: "score above range",
			evaluation: models.Evaluation{Summary: "ok", Scores: models.Scores{
				Communication: 11, ProblemSolving: 5, TechnicalDepth: 5, CultureFit: 5, ClarityBrevity: 5,
			}},
			wantErr: true,
		},
		{
			name:       "negative score",
			evaluation: models.Evaluation{Summary: "ok", Scores: models.Scores{TechnicalDepth: -0.5}},
			wantErr:    true,
		},
		{
			name:       "summary too long",
			evaluation: models.Evaluation{Summary: strings.Repeat("ä", 11), Scores: valid},
			maxSummary: 10,
			wantErr:    true,
		},
		{
			name:       "unbounded summary",
			evaluation: models.Evaluation{Summary: strings.Repeat("a", 5000), Scores: valid},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.evaluation.Validate(tt.maxSummary)
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrInvalidEvaluation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestInterview_AnswerText(t *testing.T) {
	iv := models.Interview{
		Questions: []string{"q1", "q2"},
		Answers:   []models.Answer{{Question: "q1", Text: "a1"}},
	}
	require.Equal(t, "a1", iv.AnswerText(0))
	require.Empty(t, iv.AnswerText(1))
	require.Empty(t, iv.AnswerText(-1))
}
