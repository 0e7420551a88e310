package tools

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agentgate/agentgate/internal/dispatch"
	"github.com/agentgate/agentgate/internal/execution"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/pkg/logger"
	"github.com/agentgate/agentgate/internal/safety"
	"github.com/agentgate/agentgate/internal/upstream"
)

var orderParams = []dispatch.Param{
	{Name: "token_id", Type: "string", Required: true},
	{Name: "side", Type: "string", Required: true, Enum: []string{"BUY", "SELL"}},
	{Name: "price", Type: "number", Required: true, Min: f64(0.001), Max: f64(0.999)},
	{Name: "size", Type: "number", Required: true, Min: f64(0)},
	{Name: "order_type", Type: "string", Enum: []string{"GTC", "GTD", "FAK", "FOK"}},
}

func registerTradingTools(d *dispatch.Dispatcher, deps Deps) {
	d.Register(dispatch.Tool{
		Name:        "validate_trade",
		Description: "Run the safety checks for a proposed trade without executing it.",
		ReadOnly:    true,
		Schema:      dispatch.Schema{Params: orderParams},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			proposal, err := buildProposal(ctx, deps, args)
			if err != nil {
				return nil, err
			}
			snap, err := deps.Exposure.Snapshot(ctx)
			if err != nil {
				return nil, apperrors.Wrap(err)
			}
			if err := deps.Validator.Validate(*proposal, snap); err != nil {
				appErr := apperrors.Wrap(err)
				return map[string]any{
					"ok":      false,
					"reason":  appErr.Reason,
					"message": appErr.Message,
				}, nil
			}
			return map[string]any{"ok": true}, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "place_order",
		Description: "Validate and execute an order. Exposure is committed only after the execution engine confirms.",
		Schema:      dispatch.Schema{Params: orderParams},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			proposal, err := buildProposal(ctx, deps, args)
			if err != nil {
				return nil, err
			}
			snap, err := deps.Exposure.Snapshot(ctx)
			if err != nil {
				return nil, apperrors.Wrap(err)
			}
			if err := deps.Validator.Validate(*proposal, snap); err != nil {
				return nil, err
			}

			result, err := deps.Executor.PlaceOrder(ctx, execution.OrderRequest{
				TokenID:   proposal.TokenID,
				Side:      proposal.Side,
				Price:     proposal.LimitPrice,
				Size:      dispatch.NumberArg(args, "size"),
				SizeUSD:   proposal.SizeUSD,
				OrderType: dispatch.StringArg(args, "order_type"),
			})
			if err != nil {
				return nil, err
			}

			// Confirmed upstream; now the capital counts against limits.
			if err := deps.Exposure.Commit(ctx, proposal.TokenID, proposal.SizeUSD); err != nil {
				logger.Error("exposure commit failed after confirmed order",
					"token_id", proposal.TokenID, "order_id", result.OrderID, "error", err)
			}
			return result, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "cancel_order",
		Description: "Cancel an open order by id.",
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "order_id", Type: "string", Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return deps.Executor.CancelOrder(ctx, dispatch.StringArg(args, "order_id"))
		},
	})

	d.Register(dispatch.Tool{
		Name:        "cancel_all_orders",
		Description: "Cancel every open order.",
		Schema:      dispatch.Schema{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return deps.Executor.CancelAll(ctx)
		},
	})

	d.Register(dispatch.Tool{
		Name:        "get_exposure",
		Description: "Committed exposure, total and per market.",
		ReadOnly:    true,
		Schema:      dispatch.Schema{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			snap, err := deps.Exposure.Snapshot(ctx)
			if err != nil {
				return nil, apperrors.Wrap(err)
			}
			return snap, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "get_safety_limits",
		Description: "The effective safety limits and check order.",
		ReadOnly:    true,
		Schema:      dispatch.Schema{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			limits := deps.Validator.Limits()
			return map[string]any{
				"max_order_size_usd":           limits.MaxOrderSizeUSD,
				"max_total_exposure_usd":       limits.MaxTotalExposureUSD,
				"max_position_size_per_market": limits.MaxPositionSizePerMarket,
				"min_liquidity_required":       limits.MinLiquidityRequired,
				"max_spread_tolerance":         limits.MaxSpreadTolerance,
				"executor_mode":                deps.Executor.Mode(),
			}, nil
		},
	})
}

// buildProposal turns raw order arguments into a safety proposal, pulling
// the current book to estimate spread and available liquidity.
func buildProposal(ctx context.Context, deps Deps, args map[string]any) (*safety.Proposal, error) {
	tokenID := dispatch.StringArg(args, "token_id")
	side := strings.ToUpper(dispatch.StringArg(args, "side"))
	price := dispatch.NumberArg(args, "price")
	size := dispatch.NumberArg(args, "size")

	book, err := deps.Upstream.GetOrderBook(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	spread := 0.0
	if s, ok := book.Spread(); ok {
		spread, _ = s.Float64()
	}

	// The side we would take liquidity from.
	var liquidity decimal.Decimal
	if side == "BUY" {
		liquidity = upstream.Depth(book.Asks)
	} else {
		liquidity = upstream.Depth(book.Bids)
	}
	liquidityF, _ := liquidity.Float64()

	return &safety.Proposal{
		TokenID:            tokenID,
		Side:               side,
		SizeUSD:            price * size,
		LimitPrice:         price,
		EstimatedSpread:    spread,
		AvailableLiquidity: liquidityF,
	}, nil
}
