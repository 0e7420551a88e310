// Inspector is a small CLI for poking the upstream APIs through the same
// rate-limited client the gateway uses. Handy for checking connectivity
// and eyeballing responses without starting the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/ratelimit"
	"github.com/agentgate/agentgate/internal/upstream"
)

func main() {
	var (
		listN    = flag.Int("markets", 0, "list the first N markets")
		marketID = flag.String("market", "", "fetch one market by id")
		tokenID  = flag.String("book", "", "fetch the order book for a token id")
		ping     = flag.Bool("ping", false, "ping the CLOB API")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	limiter := ratelimit.New(
		ratelimit.Bucket{RPS: cfg.RateLimit.DefaultRPS, Burst: cfg.RateLimit.DefaultBurst},
		nil,
	)
	client := upstream.NewClient(cfg.Upstream, limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case *ping:
		if err := client.Ping(ctx); err != nil {
			fail(err)
		}
		fmt.Println("upstream ok")
	case *listN > 0:
		markets, err := client.ListMarkets(ctx, &upstream.MarketsFilter{Limit: *listN})
		if err != nil {
			fail(err)
		}
		dump(markets)
	case *marketID != "":
		market, err := client.GetMarket(ctx, *marketID)
		if err != nil {
			fail(err)
		}
		dump(market)
	case *tokenID != "":
		book, err := client.GetOrderBook(ctx, *tokenID)
		if err != nil {
			fail(err)
		}
		dump(book)
		if spread, ok := book.Spread(); ok {
			fmt.Printf("spread: %s\n", spread)
		}
	default:
		flag.Usage()
	}
}

func dump(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(out))
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
