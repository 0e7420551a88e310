package tools

import (
	"context"
	"fmt"

	"github.com/agentgate/agentgate/internal/dispatch"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/stream"
)

func registerStreamTools(d *dispatch.Dispatcher, deps Deps) {
	d.Register(dispatch.Tool{
		Name:        "get_stream_status",
		Description: "Market stream connection state, reconnect attempts, and last message time.",
		ReadOnly:    true,
		Schema:      dispatch.Schema{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return deps.Stream.Status(), nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "subscribe_market",
		Description: "Add token ids to the live market stream subscription set.",
		ReadOnly:    true,
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "token_ids", Type: "array", Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			tokenIDs := dispatch.StringSliceArg(args, "token_ids")
			if len(tokenIDs) == 0 {
				return nil, apperrors.NewInvalidArgs("token_ids must contain at least one token id")
			}
			if err := deps.Stream.Subscribe(tokenIDs); err != nil {
				return nil, apperrors.New(apperrors.ErrStreamDown,
					fmt.Sprintf("subscribe failed: %v", err), err)
			}
			return map[string]any{
				"subscribed": tokenIDs,
				"status":     deps.Stream.Status(),
			}, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "get_live_book",
		Description: "The stream-maintained order book for a subscribed token.",
		ReadOnly:    true,
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "token_id", Type: "string", Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			tokenID := dispatch.StringArg(args, "token_id")
			book := deps.Stream.Book(tokenID)
			if book == nil {
				return nil, apperrors.NewNotFound(
					fmt.Sprintf("token %s is not subscribed; call subscribe_market first", tokenID))
			}
			if deps.Stream.State() != stream.StateConnected {
				return nil, apperrors.New(apperrors.ErrStreamDown,
					"market stream is not connected; cached book may be stale", nil)
			}

			bids, asks := book.GetCopy()
			payload := map[string]any{
				"token_id": tokenID,
				"bids":     renderLevels(bids),
				"asks":     renderLevels(asks),
			}
			if age := book.Age(); age >= 0 {
				payload["age_ms"] = age.Milliseconds()
			}
			bid, ask := book.BestBidAsk()
			if !bid.IsZero() {
				payload["best_bid"] = bid.String()
			}
			if !ask.IsZero() {
				payload["best_ask"] = ask.String()
			}
			return payload, nil
		},
	})
}

func renderLevels(levels []stream.Level) []map[string]string {
	out := make([]map[string]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, map[string]string{
			"price": l.Price.String(),
			"size":  l.Size.String(),
		})
	}
	return out
}
