// Package signing builds and verifies the EIP-712 typed data for CLOB
// orders. The gateway re-verifies every signature locally before an
// order leaves the process, so a builder or signer bug is caught here
// instead of as an opaque upstream rejection.
package signing

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	domainName       = "Polymarket CTF Exchange"
	domainVersion    = "1"
	exchangeContract = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
)

// OrderTypedData builds the typed-data payload the exchange verifies
// against.
func OrderTypedData(order *clobtypes.Order, signer common.Address, chainID int64) (apitypes.TypedData, error) {
	if order == nil {
		return apitypes.TypedData{}, fmt.Errorf("order is required")
	}

	domain := apitypes.TypedDataDomain{
		Name:              domainName,
		Version:           domainVersion,
		ChainId:           (*math.HexOrDecimal256)(big.NewInt(chainID)),
		VerifyingContract: exchangeContract,
	}
	typesDef := apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		"clobtypes.Order": {
			{Name: "salt", Type: "uint256"},
			{Name: "maker", Type: "address"},
			{Name: "signer", Type: "address"},
			{Name: "taker", Type: "address"},
			{Name: "tokenId", Type: "uint256"},
			{Name: "makerAmount", Type: "uint256"},
			{Name: "takerAmount", Type: "uint256"},
			{Name: "expiration", Type: "uint256"},
			{Name: "nonce", Type: "uint256"},
			{Name: "feeRateBps", Type: "uint256"},
			{Name: "side", Type: "uint8"},
			{Name: "signatureType", Type: "uint8"},
		},
	}

	sideInt := 0
	if strings.ToUpper(order.Side) == "SELL" {
		sideInt = 1
	}
	sigType := 0
	if order.SignatureType != nil {
		sigType = *order.SignatureType
	}
	expiration := big.NewInt(0)
	if order.Expiration.Int != nil {
		expiration = order.Expiration.Int
	}

	message := apitypes.TypedDataMessage{
		"salt":          (*math.HexOrDecimal256)(order.Salt.Int),
		"maker":         order.Maker.String(),
		"signer":        signer.String(),
		"taker":         order.Taker.String(),
		"tokenId":       (*math.HexOrDecimal256)(order.TokenID.Int),
		"makerAmount":   (*math.HexOrDecimal256)(order.MakerAmount.BigInt()),
		"takerAmount":   (*math.HexOrDecimal256)(order.TakerAmount.BigInt()),
		"expiration":    (*math.HexOrDecimal256)(expiration),
		"nonce":         (*math.HexOrDecimal256)(order.Nonce.Int),
		"feeRateBps":    (*math.HexOrDecimal256)(order.FeeRateBps.BigInt()),
		"side":          (*math.HexOrDecimal256)(big.NewInt(int64(sideInt))),
		"signatureType": (*math.HexOrDecimal256)(big.NewInt(int64(sigType))),
	}

	return apitypes.TypedData{
		Types:       typesDef,
		PrimaryType: "clobtypes.Order",
		Domain:      domain,
		Message:     message,
	}, nil
}

// OrderHash is the EIP-712 digest the signature covers.
func OrderHash(order *clobtypes.Order, signer common.Address, chainID int64) ([]byte, error) {
	typedData, err := OrderTypedData(order, signer, chainID)
	if err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, err
	}
	return hash, nil
}

// VerifyOrderSignature recovers the signer from the signature and checks
// it against the expected address.
func VerifyOrderSignature(order *clobtypes.Order, signature string, signerAddr common.Address, chainID int64) error {
	if signature == "" {
		return fmt.Errorf("signature is required")
	}
	hash, err := OrderHash(order, signerAddr, chainID)
	if err != nil {
		return fmt.Errorf("hash typed data: %w", err)
	}
	rawSig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding")
	}
	if len(rawSig) != 65 {
		return fmt.Errorf("invalid signature length %d", len(rawSig))
	}
	// Recovery wants V as 0/1; signers emit 27/28.
	if rawSig[64] >= 27 {
		rawSig[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, rawSig)
	if err != nil {
		return fmt.Errorf("signature recovery failed")
	}
	if recovered := crypto.PubkeyToAddress(*pub); recovered != signerAddr {
		return fmt.Errorf("signature signer %s does not match %s", recovered, signerAddr)
	}
	return nil
}
