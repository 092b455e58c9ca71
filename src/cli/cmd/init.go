package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/packwright/src/structure"
)

var initProfile string

var initCmd = &cobra.Command{
	Use:   "init <dir>",
	Short: "Scaffold a new project that passes validation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := structure.GenerateStructure(args[0], initProfile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  created %s project in %s\n", initProfile, args[0])
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initProfile, "profile", "console",
		"project profile: "+strings.Join(structure.Profiles(), ", "))

	rootCmd.AddCommand(initCmd)
}
