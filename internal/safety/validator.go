package safety

import (
	"fmt"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/pkg/metrics"
)

// Validator runs the configured checks in order and rejects on the first
// failure. Validation is a pure function of (proposal, limits, exposure):
// it has no side effects beyond metrics and is safe to call concurrently.
type Validator struct {
	limits Limits
	order  []string
}

func NewValidator(limits Limits, checkOrder []string) *Validator {
	if len(checkOrder) == 0 {
		checkOrder = DefaultCheckOrder
	}
	return &Validator{limits: limits, order: checkOrder}
}

func (v *Validator) Limits() Limits {
	return v.limits
}

// Validate returns nil when the proposal passes every check, or a typed
// SafetyViolation carrying the first failing reason.
func (v *Validator) Validate(p Proposal, exposure Snapshot) error {
	for _, reason := range v.order {
		if err := v.check(reason, p, exposure); err != nil {
			metrics.SafetyRejects.WithLabelValues(reason).Inc()
			return err
		}
	}
	return nil
}

func (v *Validator) check(reason string, p Proposal, exposure Snapshot) error {
	switch reason {
	case ReasonOrderTooLarge:
		if v.limits.MaxOrderSizeUSD > 0 && p.SizeUSD > v.limits.MaxOrderSizeUSD {
			return apperrors.NewSafety(reason, fmt.Sprintf(
				"order size %.2f exceeds limit %.2f", p.SizeUSD, v.limits.MaxOrderSizeUSD))
		}
	case ReasonExposureExceeded:
		if v.limits.MaxTotalExposureUSD > 0 && exposure.TotalUSD+p.SizeUSD > v.limits.MaxTotalExposureUSD {
			return apperrors.NewSafety(reason, fmt.Sprintf(
				"total exposure %.2f + order %.2f exceeds limit %.2f",
				exposure.TotalUSD, p.SizeUSD, v.limits.MaxTotalExposureUSD))
		}
	case ReasonPositionTooLarge:
		current := exposure.PerMarket[p.TokenID]
		if v.limits.MaxPositionSizePerMarket > 0 && current+p.SizeUSD > v.limits.MaxPositionSizePerMarket {
			return apperrors.NewSafety(reason, fmt.Sprintf(
				"position %.2f + order %.2f exceeds per-market limit %.2f",
				current, p.SizeUSD, v.limits.MaxPositionSizePerMarket))
		}
	case ReasonInsufficientLiquidity:
		if v.limits.MinLiquidityRequired > 0 && p.AvailableLiquidity < v.limits.MinLiquidityRequired {
			return apperrors.NewSafety(reason, fmt.Sprintf(
				"available liquidity %.2f below required %.2f",
				p.AvailableLiquidity, v.limits.MinLiquidityRequired))
		}
	case ReasonSpreadTooWide:
		if v.limits.MaxSpreadTolerance > 0 && p.EstimatedSpread > v.limits.MaxSpreadTolerance {
			return apperrors.NewSafety(reason, fmt.Sprintf(
				"estimated spread %.4f exceeds tolerance %.4f",
				p.EstimatedSpread, v.limits.MaxSpreadTolerance))
		}
	}
	return nil
}
