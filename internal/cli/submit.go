package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexms1504/trade-assistant/market"
	"github.com/alexms1504/trade-assistant/orders"
	"github.com/alexms1504/trade-assistant/risk"
)

func newSubmitCmd(rc *rootConfig) *cobra.Command {
	var (
		symbol     string
		shares     int
		entry      float64
		stop       float64
		takeProfit float64
		direction  string
		orderType  string
		limit      float64
		acct       string

		scaled      bool
		targetSpecs []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a bracket order (single or scaled exit)",
		Long: `Submit a protective bracket: entry plus linked stop-loss and
take-profit orders. With --scaled, one independent bracket is submitted per
profit target; targets come from repeated --target price:percent:r flags, or
from the configured default plan when none are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" {
				return fmt.Errorf("--symbol is required")
			}
			if shares <= 0 {
				return fmt.Errorf("--shares is required")
			}

			e := rc.buildEngine()
			ctx := cmd.Context()

			if !scaled {
				res, err := e.SubmitBracketOrder(ctx, orders.BracketRequest{
					Symbol:     symbol,
					Quantity:   shares,
					Entry:      entry,
					Stop:       stop,
					TakeProfit: takeProfit,
					Direction:  market.Direction(direction),
					OrderType:  market.OrderType(orderType),
					LimitPrice: limit,
					Account:    acct,
				})
				if res != nil {
					printBracket(res)
				}
				return err
			}

			targets, err := parseTargets(targetSpecs)
			if err != nil {
				return err
			}

			res, err := e.SubmitMultipleTargetOrder(ctx, orders.ScaledRequest{
				Symbol:     symbol,
				Quantity:   shares,
				Entry:      entry,
				Stop:       stop,
				Targets:    targets,
				Direction:  market.Direction(direction),
				OrderType:  market.OrderType(orderType),
				LimitPrice: limit,
				Account:    acct,
			})
			if res != nil {
				for i, br := range res.Brackets {
					fmt.Printf("--- bracket %d ---\n", i+1)
					printBracket(br)
				}
				for _, w := range res.Warnings {
					fmt.Printf("WARNING %s\n", w)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "Symbol (required)")
	cmd.Flags().IntVar(&shares, "shares", 0, "Total position size in shares (required)")
	cmd.Flags().Float64Var(&entry, "entry", 0, "Entry price")
	cmd.Flags().Float64Var(&stop, "stop", 0, "Stop-loss price")
	cmd.Flags().Float64Var(&takeProfit, "take-profit", 0, "Take-profit price (single bracket)")
	cmd.Flags().StringVar(&direction, "direction", "BUY", "Direction: BUY|SELL")
	cmd.Flags().StringVar(&orderType, "type", "LMT", "Order type: LMT|MKT|STOPLMT")
	cmd.Flags().Float64Var(&limit, "limit", 0, "Limit price (STOPLMT only)")
	cmd.Flags().StringVar(&acct, "account", "", "Account id")
	cmd.Flags().BoolVar(&scaled, "scaled", false, "Submit one bracket per profit target")
	cmd.Flags().StringSliceVar(&targetSpecs, "target", nil, "Scaled target as price:percent:r (repeatable)")

	return cmd
}

// parseTargets turns "price:percent:r" specs into target allocations. An
// empty spec list means the configured default plan applies.
func parseTargets(specs []string) ([]risk.TargetAllocation, error) {
	targets := make([]risk.TargetAllocation, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad target %q: want price:percent:r", spec)
		}

		price, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad target price %q: %w", parts[0], err)
		}
		percent, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad target percent %q: %w", parts[1], err)
		}
		r, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad target r-multiple %q: %w", parts[2], err)
		}

		targets = append(targets, risk.TargetAllocation{
			Price:     price,
			Percent:   percent,
			RMultiple: r,
		})
	}
	return targets, nil
}

func printBracket(res *orders.BracketResult) {
	for _, leg := range res.Legs {
		price := leg.LimitPrice
		if leg.StopPrice > 0 {
			price = leg.StopPrice
		}
		fmt.Printf("%-7s %-4s %4d @ %.2f  order %d\n",
			leg.Role, leg.Action, leg.Quantity, price, leg.ID)
	}
	for id, st := range res.Statuses {
		fmt.Printf("order %d: %s\n", id, st)
	}
	for _, w := range res.Warnings {
		fmt.Printf("WARNING %s\n", w)
	}
}
