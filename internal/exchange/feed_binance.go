package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"statarb-go/internal/signal"
)

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

type binanceTrade struct {
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

func (f *Feed) binanceURL() string {
	symbols := f.Symbols()
	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	return fmt.Sprintf("%s?streams=%s", f.url, strings.Join(streams, "/"))
}

func (f *Feed) runBinance(ctx context.Context, out chan<- signal.Tick) error {
	if len(f.Symbols()) == 0 {
		return fmt.Errorf("binance feed requires at least one symbol")
	}
	url := f.binanceURL()

	attempts := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := f.consumeBinanceStream(ctx, url, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}
		if attempts >= f.maxReconnects {
			return fmt.Errorf("%w after %d attempts: %v", ErrTooManyReconnects, attempts, err)
		}
		attempts++
		f.log.Warn().Err(err).Int("attempt", attempts).Msg("binance feed disconnected, retrying")
		if err := f.reconnect.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, out chan<- signal.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Strs("symbols", f.Symbols()).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				// unblock ReadMessage
				conn.SetReadDeadline(time.Now())
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			return err
		}

		tick, err := decodeBinanceTick(message)
		if err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		if err := f.emit(ctx, out, tick); err != nil {
			return err
		}
	}
}

func decodeBinanceTick(message []byte) (signal.Tick, error) {
	var env binanceEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return signal.Tick{}, err
	}
	px, err := strconv.ParseFloat(env.Data.Price, 64)
	if err != nil {
		return signal.Tick{}, fmt.Errorf("invalid price %q: %w", env.Data.Price, err)
	}
	return signal.Tick{
		Symbol: parseBinanceSymbol(env.Stream),
		Price:  px,
		Ts:     time.UnixMilli(env.Data.TradeTime),
	}, nil
}

func parseBinanceSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
