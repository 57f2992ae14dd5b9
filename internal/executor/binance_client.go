package executor

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"main/internal/model"
)

const _binanceBaseRestUrl = "https://fapi.binance.com"

// BinanceClient signs and submits orders to the Binance futures REST API.
// It classifies every failure as *ExecutionError so the Venue executor
// can apply its retry policy.
type BinanceClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *http.Client
	now       func() time.Time
}

// NewBinanceClient builds a signed REST client.
func NewBinanceClient(apiKey, apiSecret string) *BinanceClient {
	return &BinanceClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   _binanceBaseRestUrl,
		http:      &http.Client{Timeout: 5 * time.Second},
		now:       time.Now,
	}
}

type binanceOrderResponse struct {
	OrderID int64  `json:"orderId"`
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
}

// PlaceOrder submits a limit order and returns the venue order id.
func (c *BinanceClient) PlaceOrder(ctx context.Context, order model.Order) (string, error) {
	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", strings.ToUpper(order.Side.String()))
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", order.Quantity.String())
	params.Set("price", order.Price.String())
	if order.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	params.Set("newClientOrderId", strconv.FormatUint(order.ID, 10))

	var resp binanceOrderResponse
	if err := c.signedCall(ctx, http.MethodPost, "/fapi/v1/order", params, &resp); err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}

// CancelOrder cancels an order by its venue id.
func (c *BinanceClient) CancelOrder(ctx context.Context, symbol, venueOrderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", venueOrderID)

	var resp binanceOrderResponse
	return c.signedCall(ctx, http.MethodDelete, "/fapi/v1/order", params, &resp)
}

type binanceListenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

// CreateListenKey opens a user data stream session and returns its key.
// The key expires unless KeepAliveListenKey is called periodically.
func (c *BinanceClient) CreateListenKey(ctx context.Context) (string, error) {
	var resp binanceListenKeyResponse
	if err := c.keyedCall(ctx, http.MethodPost, "/fapi/v1/listenKey", &resp); err != nil {
		return "", err
	}
	if resp.ListenKey == "" {
		return "", &ExecutionError{Kind: KindVenueRejected, Reason: "empty listen key"}
	}
	return resp.ListenKey, nil
}

// KeepAliveListenKey extends the user data stream session.
func (c *BinanceClient) KeepAliveListenKey(ctx context.Context) error {
	var resp struct{}
	return c.keyedCall(ctx, http.MethodPut, "/fapi/v1/listenKey", &resp)
}

func (c *BinanceClient) signedCall(ctx context.Context, method, path string, params url.Values, out any) error {
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	params.Set("signature", c.sign(params.Encode()))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return &ExecutionError{Kind: KindUnknown, Reason: "build request", Err: err}
	}
	return c.do(ctx, req, out)
}

// keyedCall hits an endpoint that authenticates with the API key header
// alone, no signature.
func (c *BinanceClient) keyedCall(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return &ExecutionError{Kind: KindUnknown, Reason: "build request", Err: err}
	}
	return c.do(ctx, req, out)
}

func (c *BinanceClient) do(ctx context.Context, req *http.Request, out any) error {
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindConnectivityLost
		if ctx.Err() != nil || isTimeout(err) {
			kind = KindTimeout
		}
		return &ExecutionError{Kind: kind, Reason: "venue unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return &ExecutionError{Kind: KindConnectivityLost, Reason: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var venueErr binanceOrderResponse
		_ = json.Unmarshal(body, &venueErr)
		reason := venueErr.Msg
		if reason == "" {
			reason = resp.Status
		}
		kind := KindVenueRejected
		if resp.StatusCode >= http.StatusInternalServerError {
			kind = KindConnectivityLost
		}
		return &ExecutionError{Kind: kind, Reason: reason}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ExecutionError{Kind: KindUnknown, Reason: "decode response", Err: err}
	}
	return nil
}

func (c *BinanceClient) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}
