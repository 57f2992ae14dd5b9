package executor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
)

const (
	_binanceUserDataWsUrl     = "wss://fstream.binance.com/ws"
	_listenKeyKeepAlivePeriod = 25 * time.Minute
)

// BinanceFillStream consumes the venue's user data stream and surfaces
// execution reports as fills. Live orders fill asynchronously, so without
// this stream submitted orders would never settle.
type BinanceFillStream struct {
	client *BinanceClient
}

// NewBinanceFillStream builds a fill stream on top of the signed client.
func NewBinanceFillStream(client *BinanceClient) *BinanceFillStream {
	return &BinanceFillStream{client: client}
}

type binanceUserDataMessage struct {
	EventType string             `json:"e"`
	Order     binanceOrderUpdate `json:"o"`
}

type binanceOrderUpdate struct {
	Symbol          string `json:"s"`
	Side            string `json:"S"`
	ClientOrderID   string `json:"c"`
	Status          string `json:"X"`
	TradeID         uint64 `json:"t"`
	LastFilledQty   string `json:"l"`
	LastFilledPrice string `json:"L"`
	TradeTime       int64  `json:"T"`
}

// Run opens the user data stream and invokes handle for every fill until
// ctx is done. The listen key is refreshed on a timer; a dropped
// connection is returned as an error so the caller decides whether live
// trading may continue without settlement.
func (s *BinanceFillStream) Run(ctx context.Context, handle func(model.Fill) error) error {
	key, err := s.client.CreateListenKey(ctx)
	if err != nil {
		return errors.Wrap(err, "create listen key")
	}

	wss := ws.New(ctx, _binanceUserDataWsUrl+"/"+key)
	if err := wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start user data wss")
	}
	defer wss.Close()

	ch, cancel := wss.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(_listenKeyKeepAlivePeriod)
	defer keepAlive.Stop()

	logs.Infof("[live] user data stream connected")
	for {
		select {
		case <-sys.Shutdown():
			return nil
		case <-ctx.Done():
			return nil
		case <-keepAlive.C:
			if err := s.client.KeepAliveListenKey(ctx); err != nil {
				logs.Errorf("keep alive listen key, err: %+v", err)
			}
		case m, ok := <-ch:
			if !ok {
				return errors.New("user data stream disconnected")
			}

			msg, ok := ws.ReadMessage[binanceUserDataMessage](m)
			if !ok || msg.EventType != "ORDER_TRADE_UPDATE" {
				continue
			}

			fill, ok, err := parseOrderUpdate(msg.Order)
			if err != nil {
				logs.Errorf("parse order update, err: %+v", err)
				continue
			}
			if !ok {
				continue
			}
			if err := handle(fill); err != nil {
				logs.Errorf("apply venue fill %d for order %d, err: %+v", fill.FillID, fill.OrderID, err)
			}
		}
	}
}

// parseOrderUpdate maps an execution report to a fill. Reports that carry
// no executed quantity, such as plain acks and cancels, yield ok=false.
// The client order id is the engine's order id, set at submission.
func parseOrderUpdate(o binanceOrderUpdate) (model.Fill, bool, error) {
	if o.TradeID == 0 || o.LastFilledQty == "" {
		return model.Fill{}, false, nil
	}

	qty, err := decimal.NewFromString(o.LastFilledQty)
	if err != nil {
		return model.Fill{}, false, errors.Wrap(err, "parse filled quantity").With("raw", o.LastFilledQty)
	}
	if !qty.IsPositive() {
		return model.Fill{}, false, nil
	}

	price, err := decimal.NewFromString(o.LastFilledPrice)
	if err != nil {
		return model.Fill{}, false, errors.Wrap(err, "parse filled price").With("raw", o.LastFilledPrice)
	}

	orderID, err := strconv.ParseUint(o.ClientOrderID, 10, 64)
	if err != nil {
		// Not an order this process placed.
		return model.Fill{}, false, errors.Wrap(err, "parse client order id").With("raw", o.ClientOrderID)
	}

	side := model.SideBuy
	if strings.EqualFold(o.Side, "SELL") {
		side = model.SideSell
	}

	return model.Fill{
		FillID:    o.TradeID,
		OrderID:   orderID,
		Symbol:    o.Symbol,
		Side:      side,
		Price:     price,
		Quantity:  qty,
		Timestamp: time.UnixMilli(o.TradeTime),
	}, true, nil
}
