package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexms1504/trade-assistant/market"
)

func newTargetsCmd(rc *rootConfig) *cobra.Command {
	var (
		entry     float64
		stop      float64
		multiples []float64
		orderType string
		limit     float64
	)

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Suggest profit targets at R-multiples",
		RunE: func(cmd *cobra.Command, args []string) error {
			if entry <= 0 || stop <= 0 {
				return fmt.Errorf("--entry and --stop are required")
			}

			e := rc.buildEngine()
			ot := market.OrderType(orderType)
			prices := e.SuggestTargets(entry, stop, multiples, ot, limit)

			for _, p := range prices {
				r := e.CalculateRMultiple(entry, stop, p, ot, limit)
				fmt.Printf("%.1fR  %.2f\n", r, p)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&entry, "entry", 0, "Entry price (required)")
	cmd.Flags().Float64Var(&stop, "stop", 0, "Stop-loss price (required)")
	cmd.Flags().Float64SliceVar(&multiples, "r", nil, "R-multiples (default 1,2,3,5)")
	cmd.Flags().StringVar(&orderType, "type", "LMT", "Order type: LMT|MKT|STOPLMT")
	cmd.Flags().Float64Var(&limit, "limit", 0, "Limit price (STOPLMT only)")

	return cmd
}
