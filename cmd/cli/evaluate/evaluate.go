package evaluate

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/Manty2503/demo-final/internal/ai"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/logging"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "evaluate",
	Title: "Evaluation",
}

func init() {
	Evaluate.Flags().String("model", "gpt-4o-2024-08-06", "chat model used for scoring")
	Evaluate.Flags().Int("max-summary", 1000, "maximum summary length in characters") //nolint:mnd // default
}

// transcript is the subset of a stored interview needed for scoring. The output of `interviews show` is accepted.
type transcript struct {
	Questions []string        `json:"questions"`
	Answers   []models.Answer `json:"answers"`
}

var Evaluate = &cobra.Command{
	Use:     "evaluate [transcript.json]",
	GroupID: "evaluate",
	Short:   "Score a transcript",
	Long: `Scores the questions and answers in a JSON transcript file and prints the evaluation.
Uses OPENAI_API_KEY and the optional PARLEY_OPENAI_BASE_URL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.NewLogger(cmd.ErrOrStderr(), slog.LevelInfo)

		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "read transcript", slog.String("path", args[0]))
		}
		var t transcript
		if err = json.Unmarshal(data, &t); err != nil {
			return errors.Wrap(err, "decode transcript", slog.String("path", args[0]))
		}
		if len(t.Questions) == 0 {
			return errors.New("transcript has no questions", slog.String("path", args[0]))
		}

		model, err := cmd.Flags().GetString("model")
		if err != nil {
			return errors.Wrap(err, "model flag")
		}
		maxSummary, err := cmd.Flags().GetInt("max-summary")
		if err != nil {
			return errors.Wrap(err, "max-summary flag")
		}
		apiKey, ok := os.LookupEnv("OPENAI_API_KEY")
		if !ok {
			return errors.New("OPENAI_API_KEY not set")
		}

		evaluator, err := ai.NewEvaluator(ai.Config{
			APIKey:           apiKey,
			BaseURL:          os.Getenv("PARLEY_OPENAI_BASE_URL"),
			Model:            model,
			MaxSummaryLength: maxSummary,
		}, logger)
		if err != nil {
			return errors.Wrap(err, "new evaluator")
		}
		evaluation, err := evaluator.Evaluate(cmd.Context(), t.Questions, t.Answers)
		if err != nil {
			return errors.Wrap(err, "evaluate")
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return errors.Wrap(encoder.Encode(evaluation), "encode evaluation")
	},
}
