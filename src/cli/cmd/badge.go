package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/packwright/src/badge"
)

var (
	bgLabel  string
	bgValue  string
	bgColor  string
	bgStatus string
	bgDetail string
	bgName   string
)

var badgeCmd = &cobra.Command{
	Use:   "badge",
	Short: "Generate an ad-hoc SVG badge",
	Long: `Generate a single SVG badge from flags. Build, batch and analyze write
their own status badges with --badge.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bgLabel == "" || bgValue == "" {
			return fmt.Errorf("--label and --value are required")
		}
		color := bgColor
		if bgStatus != "" {
			color = badge.ParseStatus(bgStatus).Color()
		}
		return writeBadge(bgName, badge.Badge{Label: bgLabel, Value: bgValue, Detail: bgDetail, Color: color})
	},
}

func init() {
	badgeCmd.Flags().StringVar(&bgLabel, "label", "", "badge label (left side)")
	badgeCmd.Flags().StringVar(&bgValue, "value", "", "badge value (right side)")
	badgeCmd.Flags().StringVar(&bgColor, "color", "#4c1", "badge color (hex)")
	badgeCmd.Flags().StringVar(&bgStatus, "status", "", "status-driven color: passing, partial, failing")
	badgeCmd.Flags().StringVar(&bgDetail, "detail", "", "optional third segment, e.g. a duration")
	badgeCmd.Flags().StringVar(&bgName, "name", "custom", "file name without extension")

	rootCmd.AddCommand(badgeCmd)
}
