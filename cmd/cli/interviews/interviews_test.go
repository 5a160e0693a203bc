package interviews_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Manty2503/demo-final/cmd/cli/interviews"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/repositories"
	"github.com/Manty2503/demo-final/internal/sqlite"
	"github.com/Manty2503/demo-final/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// seed stores one evaluated interview in a fresh database file and returns the file path and the interview ID.
func seed(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interviews.sqlite3")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db, err := sqlite.NewDatabase(ctx, path, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	saved, err := repositories.NewInterviewRepository(db, testhelpers.NewLogger(io.Discard)).Save(ctx,
		models.Interview{
			CandidateID: "candidate-1",
			Topic:       "Machine Learning",
			Questions:   []string{"q1", "q2"},
			Answers:     []models.Answer{{Question: "q1", Text: "a1", Timestamp: time.Now().UTC()}},
			Evaluation:  &models.Evaluation{Summary: "Good.", Scores: models.Scores{Communication: 7}},
		})
	require.NoError(t, err)
	return path, saved.ID
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	interviews.Interviews.SetOut(&out)
	interviews.Interviews.SetErr(io.Discard)
	interviews.Interviews.SetArgs(args)
	err := interviews.Interviews.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInterviews(t *testing.T) {
	path, id := seed(t)

	out, err := execute(t, "list", "--db", path, "--candidate", "candidate-1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], id))
	require.Contains(t, lines[1], "1/2")

	out, err = execute(t, "list", "--db", path, "--candidate", "someone-else")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1, "only the header")

	out, err = execute(t, "show", "--db", path, id)
	require.NoError(t, err)
	var interview models.Interview
	require.NoError(t, json.Unmarshal([]byte(out), &interview))
	require.Equal(t, "Machine Learning", interview.Topic)
	require.Equal(t, "Good.", interview.Evaluation.Summary)

	out, err = execute(t, "count", "--db", path)
	require.NoError(t, err)
	require.Equal(t, "1", strings.TrimSpace(out))

	_, err = execute(t, "show", "--db", path, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}
