package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newOrdersCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List, cancel and clean up tracked orders",
	}

	cmd.AddCommand(
		newOrdersListCmd(rc),
		newOrdersHistoryCmd(rc),
		newOrdersCancelCmd(rc),
		newOrdersPurgeCmd(rc),
	)
	return cmd
}

func newOrdersListCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			active := rc.buildEngine().ActiveOrders(cmd.Context())
			if len(active) == 0 {
				fmt.Println("no active orders")
				return nil
			}
			for _, o := range active {
				fmt.Printf("%d  %-6s %-7s %-4s %4d  oca=%s  %s\n",
					o.ID, o.Symbol, o.Role, o.Action, o.Quantity, o.OCAGroup, o.Status)
			}
			return nil
		},
	}
}

func newOrdersHistoryCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the submission history",
		RunE: func(cmd *cobra.Command, args []string) error {
			history := rc.buildEngine().OrderHistory()
			if len(history) == 0 {
				fmt.Println("no submissions recorded")
				return nil
			}
			for _, rec := range history {
				fmt.Printf("%s  %-6s %-4s %4d @ %.2f stop %.2f  %s\n",
					rec.Timestamp.Format("2006-01-02 15:04:05"),
					rec.Symbol, rec.Direction, rec.Quantity, rec.Entry, rec.Stop, rec.Status)
				if rec.Detail != "" {
					fmt.Printf("    %s\n", rec.Detail)
				}
			}
			return nil
		},
	}
}

func newOrdersCancelCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Request cancellation of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("order id must be an integer: %w", err)
			}
			if err := rc.buildEngine().CancelOrder(cmd.Context(), orderID); err != nil {
				return err
			}
			fmt.Printf("cancel requested for order %d\n", orderID)
			return nil
		},
	}
}

func newOrdersPurgeCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Drop filled and cancelled orders from the active list",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed := rc.buildEngine().PurgeCompleted()
			fmt.Printf("removed %d completed orders\n", removed)
			return nil
		},
	}
}
