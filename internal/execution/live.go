package execution

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/signing"
)

// LiveExecutor signs and posts real orders through the CLOB SDK. Every
// signature is verified locally before the order is sent.
type LiveExecutor struct {
	client  *polymarket.Client
	signer  auth.Signer
	apiKey  *auth.APIKey
	chainID int64
}

func NewLiveExecutor(cfg config.ExecutionConfig) (*LiveExecutor, error) {
	pk := strings.TrimPrefix(cfg.PrivateKey, "0x")
	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = auth.PolygonChainID
	}
	signer, err := auth.NewPrivateKeySigner(pk, chainID)
	if err != nil {
		return nil, fmt.Errorf("invalid execution private key: %w", err)
	}

	apiKey := &auth.APIKey{
		Key:        cfg.APIKey,
		Secret:     cfg.APISecret,
		Passphrase: cfg.APIPassphrase,
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: 10 * time.Second,
	}
	client := polymarket.NewClient(
		polymarket.WithUseServerTime(true),
		polymarket.WithHTTPClient(httpClient),
	).WithAuth(signer, apiKey)

	return &LiveExecutor{
		client:  client,
		signer:  signer,
		apiKey:  apiKey,
		chainID: chainID,
	}, nil
}

func (l *LiveExecutor) Mode() string { return "live" }

func (l *LiveExecutor) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	builder := clob.NewOrderBuilder(l.client.CLOB, l.signer).
		TokenID(req.TokenID).
		Price(req.Price).
		Size(req.Size).
		Side(req.Side).
		OrderType(parseOrderType(req.OrderType))

	signable, err := builder.BuildSignableWithContext(ctx)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("build order: %v", err), err)
	}

	typedData, err := signing.OrderTypedData(signable.Order, l.signer.Address(), l.chainID)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "build typed data", err)
	}
	sigBytes, err := l.signer.SignTypedData(&typedData.Domain, typedData.Types, typedData.Message, typedData.PrimaryType)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "sign order", err)
	}
	signature := hexutil.Encode(sigBytes)

	if err := signing.VerifyOrderSignature(signable.Order, signature, l.signer.Address(), l.chainID); err != nil {
		return nil, apperrors.New(apperrors.ErrInternal,
			fmt.Sprintf("order signature failed local verification: %v", err), err)
	}

	signed := &clobtypes.SignedOrder{
		Order:     *signable.Order,
		Signature: signature,
		Owner:     l.apiKey.Key,
		OrderType: signable.OrderType,
		PostOnly:  signable.PostOnly,
	}
	resp, err := l.client.CLOB.PostOrder(ctx, signed)
	if err != nil {
		return nil, wrapSDKError("post order", err)
	}
	return orderResult(req, resp), nil
}

func orderResult(req OrderRequest, resp clobtypes.OrderResponse) *OrderResult {
	return &OrderResult{
		OrderID:   resp.ID,
		Status:    resp.Status,
		TokenID:   req.TokenID,
		Side:      req.Side,
		Price:     req.Price,
		Size:      req.Size,
		Simulated: false,
		PlacedAt:  time.Now(),
	}
}

func (l *LiveExecutor) CancelOrder(ctx context.Context, orderID string) (*CancelResult, error) {
	resp, err := l.client.CLOB.CancelOrder(ctx, &clobtypes.CancelOrderRequest{OrderID: orderID})
	if err != nil {
		return nil, wrapSDKError("cancel order", err)
	}
	return &CancelResult{Status: resp.Status, Count: 1, Canceled: []string{orderID}}, nil
}

func (l *LiveExecutor) CancelAll(ctx context.Context) (*CancelResult, error) {
	resp, err := l.client.CLOB.CancelAll(ctx)
	if err != nil {
		return nil, wrapSDKError("cancel all orders", err)
	}
	return &CancelResult{Status: resp.Status, Count: resp.Count}, nil
}

func parseOrderType(raw string) clobtypes.OrderType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(clobtypes.OrderTypeGTD):
		return clobtypes.OrderTypeGTD
	case string(clobtypes.OrderTypeFAK):
		return clobtypes.OrderTypeFAK
	case string(clobtypes.OrderTypeFOK):
		return clobtypes.OrderTypeFOK
	default:
		return clobtypes.OrderTypeGTC
	}
}

func wrapSDKError(op string, err error) error {
	if err == context.DeadlineExceeded {
		return apperrors.New(apperrors.ErrUpstreamTimeout, op+" timed out", err)
	}
	return apperrors.New(apperrors.ErrUpstream, fmt.Sprintf("%s: %v", op, err), err)
}
