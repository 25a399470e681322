// Package cli implements the ddex command line tool.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ddexkit/ddex/errors"
)

// Exit codes returned by the tool.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitPanic    = 3
	ExitSecurity = 10
)

var rootCmd = &cobra.Command{
	Use:   "ddex",
	Short: "Parse, inspect, and build DDEX ERN messages",
	Long: `ddex works with DDEX ERN (Electronic Release Notification) messages:
new-release feeds exchanged between labels, distributors, and streaming
services.

Commands:
  detect  print the ERN version of a document
  parse   parse a document and print its flat catalog view as JSON
  build   build canonical ERN XML from a YAML request file
  hash    print the canonical hash of a document

Exit Codes:
  0  - Success
  1  - General error (parse or build failed)
  2  - CLI usage error
  3  - Panic or unexpected system error
  10 - Security limit exceeded`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
}

// ExitCodeForError maps an error to a process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.IsCode(err, errors.CodeSecurityViolation) {
		return ExitSecurity
	}
	return ExitError
}

// newLogger builds the command logger; verbose mode enables debug output.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose = false
	}
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
