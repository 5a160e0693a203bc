package interview_test

import (
	"testing"
	"time"

	"github.com/Manty2503/demo-final/internal/interview"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	questions := []string{"first?", "second?"}
	now := time.Date(2024, 12, 17, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		answers []models.Answer
		wantErr error
		wantLen int
	}{
		{
			name:    "in order",
			answers: []models.Answer{{Question: "first?", Text: "a"}, {Question: "second?", Text: "b"}},
			wantLen: 2,
		},
		{
			name:    "question mismatch",
			answers: []models.Answer{{Question: "second?", Text: "b"}},
			wantErr: interview.ErrQuestionMismatch,
		},
		{
			name: "overflow",
			answers: []models.Answer{
				{Question: "first?"}, {Question: "second?"}, {Question: "third?"},
			},
			wantErr: interview.ErrTooManyAnswers,
			wantLen: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := interview.NewRecorder(questions)
			var err error
			for _, answer := range tt.answers {
				answer.Timestamp = now
				if err = recorder.Append(answer); err != nil {
					break
				}
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, recorder.Snapshot(), tt.wantLen)
		})
	}
}

func TestRecorder_Snapshot_isCopy(t *testing.T) {
	recorder := interview.NewRecorder([]string{"first?"})
	require.NoError(t, recorder.Append(models.Answer{Question: "first?", Text: "original"}))

	snapshot := recorder.Snapshot()
	snapshot[0].Text = "changed"

	require.Equal(t, "original", recorder.Snapshot()[0].Text)
}
