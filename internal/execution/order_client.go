package execution

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// OrderClient signs and submits orders to the Polymarket CLOB. It is the
// out-of-scope "venue signing/credential derivation library" collaborator
// named in spec §1: EIP-712 order construction and HMAC request signing,
// kept from the teacher verbatim and generalized from a fixed YES/NO pair
// to single-order submission so the Order Submitter can dispatch an
// arbitrary number of suborders per side (spec §4.5).
type OrderClient struct {
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string // EOA address (signer)
	proxyAddress  string // Proxy address (maker/funder)
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	httpClient    *http.Client
	logger        *zap.Logger
}

// OrderClientConfig holds configuration for the order client.
type OrderClientConfig struct {
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	Address       string
	ProxyAddress  string
	SignatureType int
	Logger        *zap.Logger
}

// NewOrderClient creates a new order client.
func NewOrderClient(cfg *OrderClientConfig) (*OrderClient, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	address := cfg.Address
	if address == "" {
		publicKey := privateKey.Public()
		publicKeyECDSA, _ := publicKey.(*ecdsa.PublicKey)
		address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	chainID := big.NewInt(137) // Polygon mainnet
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	return &OrderClient{
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  orderBuilder,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        cfg.Logger,
	}, nil
}

// GetMakerAddress returns the maker address (proxy if set, otherwise EOA).
func (c *OrderClient) GetMakerAddress() string {
	if c.proxyAddress != "" {
		return c.proxyAddress
	}
	return c.address
}

// PlaceOrder builds, signs, and submits a single BUY order for one
// PlannedOrder (spec §4.5): size tokens of tokenID at price, rounded to the
// venue's tick/amount precision and validated against minSize.
func (c *OrderClient) PlaceOrder(
	ctx context.Context,
	tokenID string,
	price float64,
	size float64,
	tickSize float64,
	minSize float64,
) (*types.OrderSubmissionResponse, error) {
	makerAddress := c.GetMakerAddress()
	signerAddress := c.address

	sizePrecision, amountPrecision := getRoundingConfig(tickSize)
	tokens := roundAmount(size, sizePrecision)
	if tokens < minSize {
		return nil, fmt.Errorf("order size %.4f below minimum %.4f tokens", tokens, minSize)
	}

	makerUSD := roundAmount(tokens*price, amountPrecision)
	orderData := &model.OrderData{
		Maker:         makerAddress,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   usdToRawAmount(makerUSD),
		TakerAmount:   usdToRawAmount(tokens),
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        signerAddress,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	c.logger.Debug("order-built",
		zap.String("maker", makerAddress),
		zap.String("token-id", tokenID),
		zap.Float64("price", price),
		zap.Float64("tokens", tokens))

	resp, err := c.submitOrder(ctx, signedOrder)
	if err != nil {
		return resp, fmt.Errorf("submit order: %w", err)
	}
	if !resp.Success {
		return resp, &types.OrderError{Code: resp.ErrorMsg, Message: resp.ErrorMsg, OrderID: resp.OrderID}
	}
	return resp, nil
}

// PlaceSellOrder builds, signs, and submits a single SELL order, the mirror
// image of PlaceOrder's BUY path (maker gives tokens, taker gives USD).
// Used by the close-positions debug command to unwind a held position; the
// Order Submitter itself never sells (spec §4.5 only ever buys both legs).
func (c *OrderClient) PlaceSellOrder(
	ctx context.Context,
	tokenID string,
	price float64,
	size float64,
	tickSize float64,
	minSize float64,
) (*types.OrderSubmissionResponse, error) {
	makerAddress := c.GetMakerAddress()
	signerAddress := c.address

	sizePrecision, amountPrecision := getRoundingConfig(tickSize)
	tokens := roundAmount(size, sizePrecision)
	if tokens < minSize {
		return nil, fmt.Errorf("order size %.4f below minimum %.4f tokens", tokens, minSize)
	}

	takerUSD := roundAmount(tokens*price, amountPrecision)
	orderData := &model.OrderData{
		Maker:         makerAddress,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   usdToRawAmount(tokens),
		TakerAmount:   usdToRawAmount(takerUSD),
		Side:          model.SELL,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        signerAddress,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	c.logger.Debug("sell-order-built",
		zap.String("maker", makerAddress),
		zap.String("token-id", tokenID),
		zap.Float64("price", price),
		zap.Float64("tokens", tokens))

	resp, err := c.submitOrder(ctx, signedOrder)
	if err != nil {
		return resp, fmt.Errorf("submit order: %w", err)
	}
	if !resp.Success {
		return resp, &types.OrderError{Code: resp.ErrorMsg, Message: resp.ErrorMsg, OrderID: resp.OrderID}
	}
	return resp, nil
}

// GetOrder queries order status via GET /order, used by the Fill Tracker's
// exponential-backoff fill verification.
func (c *OrderClient) GetOrder(ctx context.Context, orderID string) (*types.OrderQueryResponse, error) {
	url := fmt.Sprintf("https://clob.polymarket.com/order/%s", orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.signGet(req, "/order/"+orderID)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body))
	}

	var resp types.OrderQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

// CancelOrder cancels a resting order by its exchange order ID. Used by the
// Market-Maker to pull a stale Quote's orders before posting a replacement
// (spec §4.6 requote policy) and on shutdown (spec §4.6 "cancel all active
// Quotes before exit").
func (c *OrderClient) CancelOrder(ctx context.Context, orderID string) error {
	url := fmt.Sprintf("https://clob.polymarket.com/order/%s", orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.signDelete(req, "/order/"+orderID)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(httpResp.Body)
		return fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body))
	}
	return nil
}

// OrderInfo is one resting order as reported by GET /data/orders.
type OrderInfo struct {
	OrderID      string `json:"id"`
	Market       string `json:"market"`
	Side         string `json:"side"`
	Outcome      string `json:"outcome"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
}

// CancelAllResult is the response of DELETE /orders: the order IDs that
// were cancelled, and any that were rejected along with the reason.
type CancelAllResult struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// GetOpenOrders lists every resting order for this API key, for the
// cancel-orders and list-orders debug commands.
func (c *OrderClient) GetOpenOrders(ctx context.Context) ([]OrderInfo, error) {
	url := "https://clob.polymarket.com/data/orders"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.signGet(req, "/data/orders")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body))
	}

	var orders []OrderInfo
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return orders, nil
}

// CancelAllOrders cancels every resting order for this API key atomically
// via DELETE /orders, used by the cancel-orders debug command.
func (c *OrderClient) CancelAllOrders(ctx context.Context) (CancelAllResult, error) {
	url := "https://clob.polymarket.com/orders"

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return CancelAllResult{}, fmt.Errorf("create request: %w", err)
	}
	c.signDelete(req, "/orders")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return CancelAllResult{}, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return CancelAllResult{}, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return CancelAllResult{}, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body))
	}

	var result CancelAllResult
	if err := json.Unmarshal(body, &result); err != nil {
		return CancelAllResult{}, fmt.Errorf("parse response: %w", err)
	}
	return result, nil
}

func (c *OrderClient) signDelete(req *http.Request, requestPath string) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signaturePayload := timestamp + http.MethodDelete + requestPath

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return
	}
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.address)
}

func (c *OrderClient) signGet(req *http.Request, requestPath string) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signaturePayload := timestamp + http.MethodGet + requestPath

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return
	}
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.address)
}

// convertToOrderJSON converts a signed order to JSON format.
func (c *OrderClient) convertToOrderJSON(order *model.SignedOrder) types.SignedOrderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	return types.SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

func (c *OrderClient) submitOrder(ctx context.Context, order *model.SignedOrder) (*types.OrderSubmissionResponse, error) {
	orderRequest := types.OrderSubmissionRequest{
		Order:     c.convertToOrderJSON(order),
		Owner:     c.apiKey,
		OrderType: "GTC",
	}

	reqBody, err := json.Marshal(orderRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	requestPath := "/order"
	signaturePayload := timestamp + http.MethodPost + requestPath + string(reqBody)

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	url := "https://clob.polymarket.com" + requestPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.address)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body))
	}

	var resp types.OrderSubmissionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

func usdToRawAmount(usd float64) string {
	rawAmount := int64(usd * 1000000)
	return fmt.Sprintf("%d", rawAmount)
}

// getRoundingConfig returns the precision for size and amount based on tick size.
func getRoundingConfig(tickSize float64) (sizePrecision int, amountPrecision int) {
	switch tickSize {
	case 0.1:
		return 2, 3
	case 0.01:
		return 2, 4
	case 0.001:
		return 2, 5
	case 0.0001:
		return 2, 6
	default:
		return 2, 4
	}
}

// roundAmount rounds an amount to the specified number of decimal places.
func roundAmount(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}
