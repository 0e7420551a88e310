package tools

import (
	"context"
	"sort"
	"strings"

	"github.com/agentgate/agentgate/internal/dispatch"
	"github.com/agentgate/agentgate/internal/upstream"
)

// searchFetchLimit is how many markets we pull before filtering locally.
// Gamma has no free-text search parameter, so the query runs client-side.
const searchFetchLimit = 200

func registerMarketTools(d *dispatch.Dispatcher, deps Deps) {
	d.Register(dispatch.Tool{
		Name:        "search_markets",
		Description: "Search active markets by free-text query with optional volume and status filters.",
		ReadOnly:    true,
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "query", Type: "string", Required: true, Description: "text matched against question and slug"},
			{Name: "limit", Type: "integer", Min: f64(1), Max: f64(100)},
			{Name: "active", Type: "boolean"},
			{Name: "min_volume", Type: "number", Min: f64(0)},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query := strings.ToLower(dispatch.StringArg(args, "query"))
			limit := dispatch.IntArg(args, "limit")
			if limit <= 0 {
				limit = 20
			}
			minVolume := dispatch.NumberArg(args, "min_volume")

			filter := &upstream.MarketsFilter{Limit: searchFetchLimit}
			if active, ok := dispatch.BoolArg(args, "active"); ok {
				filter.Active = &active
			}

			markets, err := deps.Upstream.ListMarkets(ctx, filter)
			if err != nil {
				return nil, err
			}

			matches := make([]upstream.Market, 0, limit)
			for _, m := range markets {
				if m.Volume < minVolume {
					continue
				}
				if query != "" &&
					!strings.Contains(strings.ToLower(m.Question), query) &&
					!strings.Contains(strings.ToLower(m.Slug), query) {
					continue
				}
				matches = append(matches, m)
				if len(matches) >= limit {
					break
				}
			}
			return map[string]any{"markets": matches, "count": len(matches)}, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "get_trending_markets",
		Description: "Markets with the highest 24h volume.",
		ReadOnly:    true,
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "limit", Type: "integer", Min: f64(1), Max: f64(50)},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			limit := dispatch.IntArg(args, "limit")
			if limit <= 0 {
				limit = 10
			}
			active := true
			markets, err := deps.Upstream.ListMarkets(ctx, &upstream.MarketsFilter{
				Limit:  searchFetchLimit,
				Order:  "volume24hr",
				Active: &active,
			})
			if err != nil {
				return nil, err
			}
			sort.Slice(markets, func(i, j int) bool {
				return markets[i].Volume24hr > markets[j].Volume24hr
			})
			if len(markets) > limit {
				markets = markets[:limit]
			}
			return map[string]any{"markets": markets, "count": len(markets)}, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "filter_markets_by_category",
		Description: "Markets tagged with the given category.",
		ReadOnly:    true,
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "category", Type: "string", Required: true},
			{Name: "limit", Type: "integer", Min: f64(1), Max: f64(100)},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			limit := dispatch.IntArg(args, "limit")
			if limit <= 0 {
				limit = 20
			}
			markets, err := deps.Upstream.ListMarkets(ctx, &upstream.MarketsFilter{
				Limit: limit,
				Tag:   dispatch.StringArg(args, "category"),
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"markets": markets, "count": len(markets)}, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "get_market_details",
		Description: "Full detail for a single market by id.",
		ReadOnly:    true,
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "market_id", Type: "string", Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return deps.Upstream.GetMarket(ctx, dispatch.StringArg(args, "market_id"))
		},
	})

	d.Register(dispatch.Tool{
		Name:        "get_order_book",
		Description: "Current order book for a token, with spread and midpoint.",
		ReadOnly:    true,
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "token_id", Type: "string", Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			book, err := deps.Upstream.GetOrderBook(ctx, dispatch.StringArg(args, "token_id"))
			if err != nil {
				return nil, err
			}
			payload := map[string]any{"book": book}
			if spread, ok := book.Spread(); ok {
				payload["spread"] = spread.String()
			}
			if mid, ok := book.Midpoint(); ok {
				payload["midpoint"] = mid.String()
			}
			return payload, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "get_spread",
		Description: "Best bid, best ask, and spread for a token.",
		ReadOnly:    true,
		Schema: dispatch.Schema{Params: []dispatch.Param{
			{Name: "token_id", Type: "string", Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			book, err := deps.Upstream.GetOrderBook(ctx, dispatch.StringArg(args, "token_id"))
			if err != nil {
				return nil, err
			}
			payload := map[string]any{"token_id": book.AssetID}
			if bid, ok := book.BestBid(); ok {
				payload["best_bid"] = bid.String()
			}
			if ask, ok := book.BestAsk(); ok {
				payload["best_ask"] = ask.String()
			}
			if spread, ok := book.Spread(); ok {
				payload["spread"] = spread.String()
			}
			return payload, nil
		},
	})

	d.Register(dispatch.Tool{
		Name:        "ping_upstream",
		Description: "Liveness check against the CLOB API.",
		ReadOnly:    true,
		Schema:      dispatch.Schema{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			if err := deps.Upstream.Ping(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"upstream": "ok"}, nil
		},
	})
}
