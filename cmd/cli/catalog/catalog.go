package catalog

import (
	"fmt"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/questions"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "catalog",
	Title: "Question catalog",
}

var Check = &cobra.Command{
	Use:     "check [catalog.yaml]",
	GroupID: "catalog",
	Short:   "Validate a question catalog",
	Long:    `Validates a YAML question catalog and lists its sets. Without a file the bundled catalog is checked.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		catalog, err := questions.LoadFile(path)
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}
		for _, set := range catalog.Sets {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d questions\n", set.Name, set.Topic, len(set.Questions))
		}
		return nil
	},
}
