package execution

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"statarb-go/internal/paper"
	"statarb-go/internal/risk"
)

func TestSubmitLogsOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	exec := NewExecutor(logger, paper.NewLedger(10000), risk.Limits{})
	fill, err := exec.Submit(Order{Symbol: "BTCUSDT", Side: Buy, Qty: 1, Price: 400})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if fill.RemainingCash != 9600 || fill.Trade.Seq != 1 {
		t.Fatalf("unexpected fill %+v", fill)
	}
	out := buf.String()
	if !strings.Contains(out, "BTCUSDT") || !strings.Contains(out, "order filled") {
		t.Fatalf("log does not contain fill: %s", out)
	}
}

func TestSubmitRejections(t *testing.T) {
	var buf bytes.Buffer
	ledger := paper.NewLedger(1000)
	exec := NewExecutor(zerolog.New(&buf), ledger, risk.Limits{MaxNotionalPerTrade: 500})

	cases := []struct {
		order  Order
		target error
		reason string
	}{
		{Order{Symbol: "A", Side: Buy, Qty: 10, Price: 60}, ErrNotionalLimit, "notional_limit"},
		{Order{Symbol: "A", Side: Sell, Qty: 1, Price: 60}, paper.ErrNoPosition, "no_position"},
		{Order{Symbol: "A", Side: "HOLD", Qty: 1, Price: 60}, paper.ErrInvalidOrder, "invalid_order"},
		{Order{Symbol: "A", Side: Buy, Qty: -1, Price: 60}, paper.ErrInvalidOrder, "invalid_order"},
	}
	for _, c := range cases {
		_, err := exec.Submit(c.order)
		if !errors.Is(err, c.target) {
			t.Fatalf("%+v: expected %v, got %v", c.order, c.target, err)
		}
		if got := Reason(err); got != c.reason {
			t.Fatalf("%+v: expected reason %q, got %q", c.order, c.reason, got)
		}
	}
	if ledger.Cash() != 1000 || ledger.TradeCount() != 0 {
		t.Fatalf("rejections changed the ledger")
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("expected warn-level rejection logs: %s", buf.String())
	}

	funds := NewExecutor(zerolog.Nop(), paper.NewLedger(100), risk.Limits{})
	if _, err := funds.Submit(Order{Symbol: "A", Side: Buy, Qty: 2, Price: 60}); Reason(err) != "insufficient_funds" {
		t.Fatalf("expected insufficient_funds, got %v", err)
	}
}
