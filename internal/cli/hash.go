package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ddexkit/ddex"
)

var hashCmd = &cobra.Command{
	Use:   "hash <document.xml>",
	Short: "Print the canonical hash of a document",
	Long: `Hash prints the SHA-256 canonical hash of a document. The provenance
banner, if present, is excluded, so banner and non-banner builds of the
same content hash alike.`,
	Args: cobra.ExactArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ddex.CanonicalHash(data))
	return nil
}
