package polymarket

// orders.go: signed GTC limit orders on the CLOB.
//
// Amounts use integer base units (6 decimals). The CLOB checks
// makerAmount == price * takerAmount exactly, so shares are rounded down
// to cents before both sides are derived.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	gomodel "github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

const (
	zeroAddress   = "0x0000000000000000000000000000000000000000"
	usdcDecimals  = 6
	shareDecimals = 2
)

// clobOrderRequest is the JSON body sent to POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type clobOrderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}

// Submit signs and posts a limit order for the outcome token of the market.
func (c *Client) Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderReceipt, error) {
	if c.privateKey == nil {
		return domain.OrderReceipt{}, &domain.ConfigurationError{Field: "POLYMARKET_PRIVATE_KEY", Msg: "order signing needs a private key"}
	}
	if c.signer == nil {
		return domain.OrderReceipt{}, &domain.ConfigurationError{Field: "POLYMARKET_API_KEY", Msg: "order posting needs API credentials"}
	}

	market, err := c.Market(ctx, req.MarketID)
	if err != nil {
		return domain.OrderReceipt{}, fmt.Errorf("polymarket.Submit: %w", err)
	}
	tokenID, ok := tokenFor(market, req.Outcome, req.AnswerID)
	if !ok {
		return domain.OrderReceipt{}, &domain.ValidationError{Field: "outcome", Msg: fmt.Sprintf("no token for %q in market %s", req.Outcome, req.MarketID)}
	}

	data, shares, err := c.orderData(tokenID, req.Side, req.Price, req.Shares)
	if err != nil {
		return domain.OrderReceipt{}, fmt.Errorf("polymarket.Submit: %w", err)
	}
	contract := gomodel.CTFExchange
	if market.NegRisk {
		contract = gomodel.NegRiskCTFExchange
	}
	signed, err := c.orderBuilder.BuildSignedOrder(c.privateKey, data, contract)
	if err != nil {
		return domain.OrderReceipt{}, fmt.Errorf("polymarket.Submit: sign: %w", err)
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       tokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          string(req.Side),
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     c.signer.APIKey(),
		OrderType: "GTC",
	}

	slog.Info("posting order", "market", req.MarketID, "token", tokenID, "side", req.Side, "price", req.Price, "shares", shares)
	v, _, err := c.http.JSON(ctx, resolver.Request{
		Method: http.MethodPost,
		URLs:   []string{c.cfg.APIRoot + "/order"},
		Body:   body,
		Signer: c.signer,
	})
	if err != nil {
		return domain.OrderReceipt{}, fmt.Errorf("polymarket.Submit: post: %w", err)
	}
	resp := decodeOrderResponse(v)
	if !resp.Success || resp.ErrorMsg != "" {
		return domain.OrderReceipt{}, fmt.Errorf("polymarket.Submit: clob error: %s", resp.ErrorMsg)
	}

	return domain.OrderReceipt{
		DecisionID: req.DecisionID,
		Venue:      Name,
		OrderID:    resp.OrderID,
		Status:     resp.Status,
		Shares:     shares,
		Notional:   decimal.NewFromFloat(shares).Mul(decimal.NewFromFloat(req.Price)).InexactFloat64(),
	}, nil
}

// orderData builds the unsigned order. BUY pays USDC (maker) for shares
// (taker); SELL is the reverse.
func (c *Client) orderData(tokenID string, side domain.Side, price, shares float64) (*gomodel.OrderData, float64, error) {
	p := decimal.NewFromFloat(price)
	size := decimal.NewFromFloat(shares).RoundDown(shareDecimals)
	usdc := size.Mul(p).Shift(usdcDecimals).Truncate(0)
	units := size.Shift(usdcDecimals).Truncate(0)
	if !usdc.IsPositive() || !units.IsPositive() {
		return nil, 0, &domain.ValidationError{Field: "shares", Msg: fmt.Sprintf("order too small: %s shares at %s", size, p)}
	}

	maker := c.cfg.Wallet
	if maker == "" {
		maker = c.signerAddr
	}
	data := &gomodel.OrderData{
		Maker:         maker,
		Taker:         zeroAddress,
		TokenId:       tokenID,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.signerAddr,
		Expiration:    "0",
		SignatureType: signatureType(c.cfg.SignatureType),
	}
	if side == domain.SideSell {
		data.Side = gomodel.SELL
		data.MakerAmount, data.TakerAmount = units.String(), usdc.String()
	} else {
		data.Side = gomodel.BUY
		data.MakerAmount, data.TakerAmount = usdc.String(), units.String()
	}
	return data, size.InexactFloat64(), nil
}

// tokenFor resolves the outcome token. Answer ids of named markets are
// already token ids.
func tokenFor(m domain.CanonicalMarket, outcome, answerID string) (string, bool) {
	if answerID != "" {
		for _, t := range m.Tokens {
			if t.TokenID == answerID {
				return t.TokenID, true
			}
		}
		if a, ok := m.FindAnswer(answerID); ok {
			outcome = a.Label
		}
	}
	return m.TokenFor(outcome)
}

// signatureType maps 0/1/2 to EOA, POLY_PROXY and POLY_GNOSIS_SAFE.
func signatureType(t int) int {
	switch t {
	case 1:
		return gomodel.POLY_PROXY
	case 2:
		return gomodel.POLY_GNOSIS_SAFE
	default:
		return gomodel.EOA
	}
}

func decodeOrderResponse(v any) clobOrderResponse {
	var out clobOrderResponse
	b, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}
