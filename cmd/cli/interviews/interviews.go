package interviews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/logging"
	"github.com/Manty2503/demo-final/internal/repositories"
	"github.com/Manty2503/demo-final/internal/sqlite"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "interviews",
	Title: "Stored interviews",
}

func init() {
	Interviews.PersistentFlags().String("db", "", "SQLite database URL, defaults to PARLEY_SQLITE_URL")
	list.Flags().String("candidate", "", "candidate ID whose interviews are listed")
	_ = list.MarkFlagRequired("candidate")
	Interviews.AddCommand(list, show, count)
}

var Interviews = &cobra.Command{
	Use:     "interviews",
	GroupID: "interviews",
	Short:   "Inspect stored interviews",
}

var list = &cobra.Command{
	Use:   "list",
	Short: "List a candidate's interviews, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		candidateID, err := cmd.Flags().GetString("candidate")
		if err != nil {
			return errors.Wrap(err, "candidate flag")
		}
		return withRepository(cmd, func(ctx context.Context, repo *repositories.InterviewRepository) error {
			interviews, err := repo.ListByCandidate(ctx, candidateID)
			if err != nil {
				return errors.Wrap(err, "list interviews")
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
			_, _ = fmt.Fprintln(w, "ID\tCREATED\tTOPIC\tANSWERS\tEVALUATED")
			for _, iv := range interviews {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%t\n", iv.ID, iv.Created.Format(time.DateTime), iv.Topic,
					len(iv.Answers), len(iv.Questions), iv.Evaluation != nil)
			}
			return errors.Wrap(w.Flush(), "flush table")
		})
	},
}

var show = &cobra.Command{
	Use:   "show [id]",
	Short: "Print one interview as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(ctx context.Context, repo *repositories.InterviewRepository) error {
			interview, err := repo.Get(ctx, args[0])
			if err != nil {
				return errors.Wrap(err, "get interview", slog.String("id", args[0]))
			}
			return printJSON(cmd.OutOrStdout(), interview)
		})
	},
}

var count = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored interviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRepository(cmd, func(ctx context.Context, repo *repositories.InterviewRepository) error {
			n, err := repo.Count(ctx)
			if err != nil {
				return errors.Wrap(err, "count interviews")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return errors.Wrap(err, "print count")
		})
	},
}

// withRepository opens the database for the duration of fn.
func withRepository(cmd *cobra.Command, fn func(context.Context, *repositories.InterviewRepository) error) error {
	url, err := cmd.Flags().GetString("db")
	if err != nil {
		return errors.Wrap(err, "db flag")
	}
	if url == "" {
		url = os.Getenv("PARLEY_SQLITE_URL")
	}
	if url == "" {
		return errors.New("no database, set --db or PARLEY_SQLITE_URL")
	}

	logger := logging.NewLogger(cmd.ErrOrStderr(), slog.LevelWarn)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	db, err := sqlite.NewDatabase(ctx, url, logger)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", url))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "failed to close database", errors.SlogError(closeErr))
		}
	}()

	return fn(ctx, repositories.NewInterviewRepository(db, logger))
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(v), "encode json")
}
