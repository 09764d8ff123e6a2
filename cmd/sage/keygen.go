package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evergreen-ci/sage-sub002/internal/sealed"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an ENCRYPTION_KEY for stored API keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, recipient, err := sealed.GenerateIdentity()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# public key: %s\n", recipient)
		fmt.Fprintf(out, "ENCRYPTION_KEY=%s\n", identity)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
