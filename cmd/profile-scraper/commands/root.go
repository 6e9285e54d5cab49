package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hamza5/InteractiveCV/internal/components/serviceutil"
	"github.com/Hamza5/InteractiveCV/internal/dispatch"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "profile-scraper [target]",
	Short: "profile-scraper extracts profile and review data and saves it as repository variables.",
	Long: fmt.Sprintf(
		"profile-scraper scrapes the configured profile and review pages and saves one JSON document "+
			"per target to the configured store.\n\nTargets, run in this order when none is given: %s.",
		strings.Join(dispatch.Order, ", "),
	),
	Args:          cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs:     dispatch.Order,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		return run(cmd.Context(), target, cmd.OutOrStdout())
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		serviceutil.Fatal("profile-scraper failed", err)
	}
}
