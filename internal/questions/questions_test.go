package questions_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Manty2503/demo-final/internal/questions"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	catalog, err := questions.Default()
	require.NoError(t, err)

	set, err := catalog.Get("")
	require.NoError(t, err)
	require.Equal(t, "machine-learning", set.Name)
	require.Len(t, set.Questions, 4)

	_, err = catalog.Get("nonexistent")
	require.ErrorIs(t, err, questions.ErrUnknownSet)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid",
			yaml: `
sets:
  - name: one
    topic: Topic
    questions: [first, second]
`,
		},
		{name: "empty", yaml: ``, wantErr: true},
		{name: "not yaml", yaml: `sets: [`, wantErr: true},
		{
			name: "missing topic",
			yaml: `
sets:
  - name: one
    questions: [first]
`,
			wantErr: true,
		},
		{
			name: "blank question",
			yaml: `
sets:
  - name: one
    topic: Topic
    questions: ["first", "  "]
`,
			wantErr: true,
		},
		{
			name: "duplicate names",
			yaml: `
sets:
  - {name: one, topic: A, questions: [q]}
  - {name: one, topic: B, questions: [q]}
`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := questions.Parse([]byte(tt.yaml))
			if tt.wantErr {
				require.ErrorIs(t, err, questions.ErrInvalidCatalog)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sets:
  - name: short
    topic: Databases
    questions:
      - What is an index?
      - "When do you denormalise: for reads or for writes?"
`), 0o600))

	catalog, err := questions.LoadFile(path)
	require.NoError(t, err)
	set, err := catalog.Get("short")
	require.NoError(t, err)
	require.Equal(t, "Databases", set.Topic)
	require.Equal(t, []string{"What is an index?", "When do you denormalise: for reads or for writes?"},
		set.Questions)

	_, err = questions.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSet_Instructions(t *testing.T) {
	set := questions.Set{Name: "x", Topic: "Machine Learning", Questions: []string{"First?", "Second?"}}
	instructions := set.Instructions()
	require.Contains(t, instructions, `exactly 2 technical questions on the topic: "Machine Learning"`)
	require.Contains(t, instructions, "1. First?\n2. Second?\n")
}
