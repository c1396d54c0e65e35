package account

import "fmt"

// Margin rates per account class. Day-trading accounts get 4:1 intraday
// leverage (25% margin), regular margin accounts 2:1 (50%).
const (
	dayTraderMarginRate = 0.25
	regularMarginRate   = 0.50

	// DefaultMarginBuffer keeps a slice of buying power in reserve; orders
	// inside buying power but beyond the buffered amount draw a warning.
	DefaultMarginBuffer = 0.25
)

// Snapshot is a fixed point-in-time view of one account. It satisfies
// Provider for demo trading and tests, and doubles as the value the live
// provider would refresh from the gateway's account stream.
type Snapshot struct {
	ID                string
	NetLiquidationVal float64
	BuyingPowerVal    float64
	DayTrader         bool

	// MarginBuffer overrides DefaultMarginBuffer when non-zero.
	MarginBuffer float64
}

var _ Provider = (*Snapshot)(nil)

func (s *Snapshot) match(acct string) error {
	if s == nil {
		return ErrUnavailable
	}
	if acct != "" && acct != s.ID {
		return fmt.Errorf("%w: %s", ErrNoAccount, acct)
	}
	return nil
}

func (s *Snapshot) NetLiquidation(acct string) (float64, error) {
	if err := s.match(acct); err != nil {
		return 0, err
	}
	return s.NetLiquidationVal, nil
}

func (s *Snapshot) BuyingPower(acct string) (float64, error) {
	if err := s.match(acct); err != nil {
		return 0, err
	}
	return s.BuyingPowerVal, nil
}

func (s *Snapshot) MarginRequirement(quantity int, price float64, acct string) (float64, error) {
	if err := s.match(acct); err != nil {
		return 0, err
	}

	orderValue := float64(quantity) * price
	if s.DayTrader {
		return orderValue * dayTraderMarginRate, nil
	}
	return orderValue * regularMarginRate, nil
}

func (s *Snapshot) ValidateOrderBuyingPower(orderValue float64, acct string) (BuyingPowerCheck, error) {
	if err := s.match(acct); err != nil {
		return BuyingPowerCheck{}, err
	}

	buffer := s.MarginBuffer
	if buffer == 0 {
		buffer = DefaultMarginBuffer
	}
	buffered := s.BuyingPowerVal * (1 - buffer)

	switch {
	case orderValue > s.BuyingPowerVal:
		return BuyingPowerCheck{
			Message: fmt.Sprintf("order value $%.2f exceeds buying power $%.2f", orderValue, s.BuyingPowerVal),
		}, nil
	case orderValue > buffered:
		return BuyingPowerCheck{
			OK:      true,
			Warning: true,
			Message: fmt.Sprintf("order uses more than %.0f%% of buying power", (1-buffer)*100),
		}, nil
	default:
		return BuyingPowerCheck{OK: true, Message: "order within buying power limits"}, nil
	}
}
