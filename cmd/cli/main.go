package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/Manty2503/demo-final/cmd/cli/catalog"
	"github.com/Manty2503/demo-final/cmd/cli/evaluate"
	"github.com/Manty2503/demo-final/cmd/cli/interviews"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(evaluate.Group)
	rootCmd.AddCommand(evaluate.Evaluate)
	rootCmd.AddGroup(interviews.Group)
	rootCmd.AddCommand(interviews.Interviews)
	rootCmd.AddGroup(catalog.Group)
	rootCmd.AddCommand(catalog.Check)
}

var rootCmd = &cobra.Command{
	Use:          "parley-cli",
	Long:         `Command line utilities for the voice interview server`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
