package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ddexkit/ddex"
)

var detectCmd = &cobra.Command{
	Use:   "detect <document.xml>",
	Short: "Print the ERN version of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	version, err := ddex.DetectVersion(f)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), version)
	return nil
}
