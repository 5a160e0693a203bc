package evaluate_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/Manty2503/demo-final/cmd/cli/evaluate"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		chatStatus int
		wantErr    bool
	}{
		{
			name: "prints evaluation",
			transcript: `{"questions":["What is a goroutine?","What is a channel?"],` +
				`"answers":[{"question":"What is a goroutine?","text":"A green thread."}]}`,
			chatStatus: http.StatusOK,
		},
		{
			name:       "no questions",
			transcript: `{"questions":[],"answers":[]}`,
			chatStatus: http.StatusOK,
			wantErr:    true,
		},
		{
			name:       "upstream failure",
			transcript: `{"questions":["What is a goroutine?"],"answers":[]}`,
			chatStatus: http.StatusInternalServerError,
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testhelpers.NewFakeOpenAI(t)
			fake.SetChatStatus(tt.chatStatus)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv("PARLEY_OPENAI_BASE_URL", fake.URL())

			var out, errOut bytes.Buffer
			evaluate.Evaluate.SetOut(&out)
			evaluate.Evaluate.SetErr(&errOut)
			evaluate.Evaluate.SetArgs([]string{writeTranscript(t, tt.transcript)})
			err := evaluate.Evaluate.ExecuteContext(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			var evaluation models.Evaluation
			require.NoError(t, json.Unmarshal(out.Bytes(), &evaluation))
			require.Equal(t, "Clear and structured answers.", evaluation.Summary)
			require.Len(t, fake.ChatRequests(), 1)
		})
	}
}
