package feed

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
)

const _binanceBaseWsUrl = "wss://stream.binance.com:9443/ws"

// Binance streams trade prices and best bid/ask snapshots over one shared
// websocket connection.
type Binance struct {
	wss    *ws.WebSocket
	books  *Books
	nextID atomic.Int64
}

// NewBinance creates a Binance market-data feed writing book snapshots
// into books.
func NewBinance(ctx context.Context, books *Books) *Binance {
	return &Binance{
		wss:   ws.New(ctx, _binanceBaseWsUrl),
		books: books,
	}
}

// Start opens the websocket connection.
func (f *Binance) Start(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	return nil
}

// Close tears the connection down.
func (f *Binance) Close() {
	f.wss.Close()
}

type binanceSubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type binanceSubscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

type binanceStreamMessage struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`

	// Book ticker fields; spot book tickers carry no event type.
	UpdateID int64  `json:"u"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// Subscribe registers the symbol's trade and book-ticker streams and
// returns a channel of trade prices. The channel closes when the
// connection drops, which is how disconnect is told apart from "no new
// data".
func (f *Binance) Subscribe(ctx context.Context, symbol string) (<-chan model.Price, error) {
	lower := strings.ToLower(symbol)
	streams := []string{
		fmt.Sprintf("%s@trade", lower),
		fmt.Sprintf("%s@bookTicker", lower),
	}
	if err := f.subscribeStreams(ctx, streams); err != nil {
		return nil, err
	}

	ch, cancel := f.wss.Subscribe()
	out := make(chan model.Price, 64)

	go func() {
		defer cancel()
		defer close(out)
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				msg, ok := ws.ReadMessage[binanceStreamMessage](m)
				if !ok || !strings.EqualFold(msg.Symbol, symbol) {
					continue
				}

				switch {
				case msg.EventType == "trade":
					price, err := parseTrade(symbol, msg)
					if err != nil {
						logs.Errorf("parse trade, err: %+v", err)
						continue
					}
					select {
					case out <- price:
					default:
						// Collector lags: drop this tick.
					}
				case msg.BidPrice != "" && msg.AskPrice != "":
					book, err := parseBookTicker(symbol, msg)
					if err != nil {
						logs.Errorf("parse book ticker, err: %+v", err)
						continue
					}
					f.books.Put(book)
				}
			}
		}
	}()

	return out, nil
}

func (f *Binance) subscribeStreams(ctx context.Context, streams []string) error {
	reqID := f.nextID.Add(1)
	appendIntoRegister := true
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, wss *ws.WebSocket) error {
			payload := binanceSubscribeRequest{
				Method: "SUBSCRIBE",
				Params: streams,
				ID:     reqID,
			}
			if err := wss.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp binanceSubscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != reqID {
				return false, nil
			}
			if resp.Result != nil {
				return false, errors.Errorf("subscribe failed, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}
	return nil
}

func parseTrade(symbol string, msg binanceStreamMessage) (model.Price, error) {
	value, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return model.Price{}, errors.Wrap(err, "parse price")
	}
	volume, err := decimal.NewFromString(msg.Quantity)
	if err != nil {
		return model.Price{}, errors.Wrap(err, "parse quantity")
	}
	return model.Price{
		Symbol:    symbol,
		Value:     value,
		Volume:    volume,
		Timestamp: time.UnixMilli(msg.TradeTime),
	}, nil
}

func parseBookTicker(symbol string, msg binanceStreamMessage) (model.OrderBook, error) {
	bidPrice, err := decimal.NewFromString(msg.BidPrice)
	if err != nil {
		return model.OrderBook{}, errors.Wrap(err, "parse bid price")
	}
	bidQty, err := decimal.NewFromString(msg.BidQty)
	if err != nil {
		return model.OrderBook{}, errors.Wrap(err, "parse bid qty")
	}
	askPrice, err := decimal.NewFromString(msg.AskPrice)
	if err != nil {
		return model.OrderBook{}, errors.Wrap(err, "parse ask price")
	}
	askQty, err := decimal.NewFromString(msg.AskQty)
	if err != nil {
		return model.OrderBook{}, errors.Wrap(err, "parse ask qty")
	}
	return model.OrderBook{
		Symbol:    symbol,
		BidPrice:  bidPrice,
		BidQty:    bidQty,
		AskPrice:  askPrice,
		AskQty:    askQty,
		Timestamp: time.Now(),
	}, nil
}
