// Package safety validates proposed trades against configured risk
// thresholds before they can reach the execution path.
package safety

// Limits is the immutable risk-threshold configuration. Constructed once
// from config and read-only thereafter.
type Limits struct {
	MaxOrderSizeUSD          float64
	MaxTotalExposureUSD      float64
	MaxPositionSizePerMarket float64
	MinLiquidityRequired     float64
	MaxSpreadTolerance       float64
}

// Proposal describes a trade to be validated. Transient: built per
// validation call, never persisted.
type Proposal struct {
	TokenID            string
	Side               string
	SizeUSD            float64
	LimitPrice         float64
	EstimatedSpread    float64
	AvailableLiquidity float64
}

// Reject reasons, in the default check order.
const (
	ReasonOrderTooLarge         = "OrderTooLarge"
	ReasonExposureExceeded      = "ExposureExceeded"
	ReasonPositionTooLarge      = "PositionTooLarge"
	ReasonInsufficientLiquidity = "InsufficientLiquidity"
	ReasonSpreadTooWide         = "SpreadTooWide"
)

// DefaultCheckOrder is the sequence checks run in unless overridden via
// safety.check_order. The first failing check wins, so the order is part
// of the observable contract.
var DefaultCheckOrder = []string{
	ReasonOrderTooLarge,
	ReasonExposureExceeded,
	ReasonPositionTooLarge,
	ReasonInsufficientLiquidity,
	ReasonSpreadTooWide,
}

// CheckOrderFromKeys maps config keys (snake_case) to reject reasons.
// Unknown keys were already rejected by config validation.
func CheckOrderFromKeys(keys []string) []string {
	if len(keys) == 0 {
		return DefaultCheckOrder
	}
	order := make([]string, 0, len(keys))
	for _, k := range keys {
		switch k {
		case "order_too_large":
			order = append(order, ReasonOrderTooLarge)
		case "exposure_exceeded":
			order = append(order, ReasonExposureExceeded)
		case "position_too_large":
			order = append(order, ReasonPositionTooLarge)
		case "insufficient_liquidity":
			order = append(order, ReasonInsufficientLiquidity)
		case "spread_too_wide":
			order = append(order, ReasonSpreadTooWide)
		}
	}
	return order
}
