package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexms1504/trade-assistant/market"
	"github.com/alexms1504/trade-assistant/risk"
)

func newValidateCmd(rc *rootConfig) *cobra.Command {
	var (
		symbol     string
		entry      float64
		stop       float64
		takeProfit float64
		shares     int
		direction  string
		orderType  string
		limit      float64
		acct       string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run a trade through the validation rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" {
				return fmt.Errorf("--symbol is required")
			}

			d := rc.buildEngine().ValidateTrade(risk.TradeCheck{
				Symbol:     symbol,
				Entry:      entry,
				Stop:       stop,
				TakeProfit: takeProfit,
				Shares:     shares,
				Direction:  market.Direction(direction),
				OrderType:  market.OrderType(orderType),
				LimitPrice: limit,
				Account:    acct,
			})

			for _, msg := range d.Errors {
				fmt.Printf("ERROR   %s\n", msg)
			}
			for _, msg := range d.Warnings {
				fmt.Printf("WARNING %s\n", msg)
			}
			if d.OK() {
				fmt.Println("Trade passed validation")
				return nil
			}
			return fmt.Errorf("trade failed validation (%d errors)", len(d.Errors))
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "Symbol (required)")
	cmd.Flags().Float64Var(&entry, "entry", 0, "Entry price")
	cmd.Flags().Float64Var(&stop, "stop", 0, "Stop-loss price")
	cmd.Flags().Float64Var(&takeProfit, "take-profit", 0, "Take-profit price")
	cmd.Flags().IntVar(&shares, "shares", 0, "Position size in shares")
	cmd.Flags().StringVar(&direction, "direction", "BUY", "Direction: BUY|SELL")
	cmd.Flags().StringVar(&orderType, "type", "LMT", "Order type: LMT|MKT|STOPLMT")
	cmd.Flags().Float64Var(&limit, "limit", 0, "Limit price (STOPLMT only)")
	cmd.Flags().StringVar(&acct, "account", "", "Account id")

	return cmd
}
