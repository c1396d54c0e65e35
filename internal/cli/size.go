package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexms1504/trade-assistant/market"
	"github.com/alexms1504/trade-assistant/risk"
)

func newSizeCmd(rc *rootConfig) *cobra.Command {
	var (
		entry     float64
		stop      float64
		riskPct   float64
		orderType string
		limit     float64
		acct      string
	)

	cmd := &cobra.Command{
		Use:   "size",
		Short: "Compute a risk-based position size",
		RunE: func(cmd *cobra.Command, args []string) error {
			if entry <= 0 {
				return fmt.Errorf("--entry is required")
			}
			if stop <= 0 {
				return fmt.Errorf("--stop is required")
			}

			res, err := rc.buildEngine().CalculatePositionSize(risk.SizeInput{
				Entry:       entry,
				Stop:        stop,
				RiskPercent: riskPct,
				OrderType:   market.OrderType(orderType),
				LimitPrice:  limit,
				Account:     acct,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Shares:          %d\n", res.Shares)
			fmt.Printf("Position value:  $%.2f\n", res.PositionValue)
			fmt.Printf("Dollar risk:     $%.2f (%.2f%% of $%.2f)\n",
				res.DollarRisk, res.RiskPercent, res.AccountValue)
			fmt.Printf("Risk per share:  $%.2f\n", res.RiskPerShare)
			if res.MarginRequired > 0 {
				fmt.Printf("Margin required: $%.2f\n", res.MarginRequired)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&entry, "entry", 0, "Entry price (required)")
	cmd.Flags().Float64Var(&stop, "stop", 0, "Stop-loss price (required)")
	cmd.Flags().Float64Var(&riskPct, "risk", 0, "Risk percent of account (default from config)")
	cmd.Flags().StringVar(&orderType, "type", "LMT", "Order type: LMT|MKT|STOPLMT")
	cmd.Flags().Float64Var(&limit, "limit", 0, "Limit price (STOPLMT only)")
	cmd.Flags().StringVar(&acct, "account", "", "Account id (default from config)")

	return cmd
}
