package account

import "errors"

var (
	// ErrUnavailable means no account data source is wired up or reachable.
	// Callers must surface this state; it is never folded into a zero value.
	ErrUnavailable = errors.New("account data unavailable")

	// ErrNoAccount means the requested account id is unknown to the provider.
	ErrNoAccount = errors.New("no such account")
)

// BuyingPowerCheck is the three-way outcome of a buying-power validation:
// hard failure (OK=false), soft warning (OK=true, Warning=true), or clean.
type BuyingPowerCheck struct {
	OK      bool
	Warning bool
	Message string
}

// Provider supplies the account state the risk engine needs. An empty
// account id selects the provider's active account.
type Provider interface {
	NetLiquidation(acct string) (float64, error)
	BuyingPower(acct string) (float64, error)

	// MarginRequirement estimates the margin a position of quantity shares
	// at price would consume.
	MarginRequirement(quantity int, price float64, acct string) (float64, error)

	// ValidateOrderBuyingPower checks an order's total value against the
	// account's buying power, applying the provider's margin buffer.
	ValidateOrderBuyingPower(orderValue float64, acct string) (BuyingPowerCheck, error)
}
