package paper

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestBuyAveragesPrice(t *testing.T) {
	ledger := NewLedger(10000)

	if _, err := ledger.Buy("ETHUSDT", 10, 100); err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}
	if _, err := ledger.Buy("ETHUSDT", 10, 200); err != nil {
		t.Fatalf("unexpected second buy error: %v", err)
	}

	qty, avg, ok := ledger.Position("ETHUSDT")
	if !ok || qty != 20 || avg != 150 {
		t.Fatalf("expected {20, 150}, got {%v, %v} ok=%v", qty, avg, ok)
	}
	if cash := ledger.Cash(); cash != 7000 {
		t.Fatalf("expected cash 7000, got %v", cash)
	}
}

func TestSellFullPositionRealizesPnL(t *testing.T) {
	ledger := NewLedger(50000)
	if _, err := ledger.Buy("BTCUSDT", 1, 40000); err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}
	before := ledger.Cash()

	trade, err := ledger.Sell("BTCUSDT", 1, 45000)
	if err != nil {
		t.Fatalf("unexpected sell error: %v", err)
	}
	if trade.RealizedPnL == nil || *trade.RealizedPnL != 5000 {
		t.Fatalf("expected realized pnl 5000, got %v", trade.RealizedPnL)
	}
	if _, _, ok := ledger.Position("BTCUSDT"); ok {
		t.Fatalf("expected position removed")
	}
	if got := ledger.Cash() - before; got != 45000 {
		t.Fatalf("expected cash to increase by 45000, got %v", got)
	}
	if ledger.RealizedPnL() != 5000 {
		t.Fatalf("expected cumulative realized 5000, got %v", ledger.RealizedPnL())
	}
}

func TestBuyInsufficientFundsLeavesStateUntouched(t *testing.T) {
	ledger := NewLedger(1000)
	if _, err := ledger.Buy("SOLUSDT", 2, 100); err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}
	before := ledger.Summary(nil)

	_, err := ledger.Buy("SOLUSDT", 10, 100)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	after := ledger.Summary(nil)
	if after.Cash != before.Cash || after.TradeCount != before.TradeCount {
		t.Fatalf("state changed after rejected buy: %+v vs %+v", before, after)
	}
	if len(after.Positions) != 1 || after.Positions[0].Quantity != 2 {
		t.Fatalf("position changed after rejected buy: %+v", after.Positions)
	}
}

func TestSellErrors(t *testing.T) {
	ledger := NewLedger(1000)
	if _, err := ledger.Sell("BTCUSDT", 1, 10); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
	if _, err := ledger.Buy("BTCUSDT", 1, 10); err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}
	if _, err := ledger.Sell("BTCUSDT", 2, 10); !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("expected ErrInsufficientQuantity, got %v", err)
	}
	if qty, _, _ := ledger.Position("BTCUSDT"); qty != 1 {
		t.Fatalf("position changed after rejected sell: %v", qty)
	}
}

func TestInvalidOrders(t *testing.T) {
	ledger := NewLedger(1000)
	cases := []struct {
		symbol     string
		qty, price float64
	}{
		{"", 1, 1},
		{"X", 0, 1},
		{"X", -1, 1},
		{"X", 1, 0},
		{"X", math.NaN(), 1},
		{"X", 1, math.Inf(1)},
	}
	for _, c := range cases {
		if _, err := ledger.Buy(c.symbol, c.qty, c.price); !errors.Is(err, ErrInvalidOrder) {
			t.Fatalf("Buy(%q,%v,%v): expected ErrInvalidOrder, got %v", c.symbol, c.qty, c.price, err)
		}
	}
}

func TestPortfolioValueUsesMarks(t *testing.T) {
	ledger := NewLedger(1000)
	_, _ = ledger.Buy("A", 2, 100)
	_, _ = ledger.Buy("B", 1, 50)

	marks := MarksLookup(map[string]float64{"A": 120})
	// B has no mark and falls back to its average price.
	if got := ledger.PortfolioValue(marks); got != 750+240+50 {
		t.Fatalf("unexpected portfolio value %v", got)
	}
	if got := ledger.PnL(marks); got != 40 {
		t.Fatalf("unexpected pnl %v", got)
	}
	summary := ledger.Summary(marks)
	if summary.UnrealizedPnL != 40 || summary.Positions[0].Symbol != "A" || summary.Positions[0].Side != PositionSide {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestHistoryLimitAndOrder(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	clock := func() time.Time {
		n++
		return ts.Add(time.Duration(n) * time.Minute)
	}
	ledger := NewLedger(1000, WithClock(clock))
	_, _ = ledger.Buy("A", 1, 10)
	_, _ = ledger.Buy("B", 1, 10)
	_, _ = ledger.Sell("A", 1, 12)

	all := ledger.History(0)
	if len(all) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(all))
	}
	last := ledger.History(2)
	if len(last) != 2 || last[0].Symbol != "B" || last[1].Action != Sell {
		t.Fatalf("unexpected limited history %+v", last)
	}
	if !last[1].Timestamp.After(last[0].Timestamp) {
		t.Fatalf("timestamps must follow execution order")
	}
	if last[1].CashDelta != 12 || all[0].CashDelta != -10 {
		t.Fatalf("unexpected cash deltas %+v", all)
	}
}

// Random buy/sell sequences must keep cash non-negative and reconcile
// cash + cost basis of open positions with initial balance + realized PnL.
func TestLedgerConservationRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	symbols := []string{"A", "B", "C"}
	const initial = 25000.0
	ledger := NewLedger(initial)

	for i := 0; i < 2000; i++ {
		sym := symbols[rng.Intn(len(symbols))]
		qty := float64(rng.Intn(20) + 1)
		price := math.Round((50+rng.Float64()*150)*100) / 100
		if rng.Intn(2) == 0 {
			_, err := ledger.Buy(sym, qty, price)
			if err != nil && !errors.Is(err, ErrInsufficientFunds) {
				t.Fatalf("unexpected buy error: %v", err)
			}
		} else {
			_, err := ledger.Sell(sym, qty, price)
			if err != nil && !errors.Is(err, ErrNoPosition) && !errors.Is(err, ErrInsufficientQuantity) {
				t.Fatalf("unexpected sell error: %v", err)
			}
		}

		if ledger.Cash() < 0 {
			t.Fatalf("cash went negative at step %d", i)
		}
		summary := ledger.Summary(nil)
		var basis float64
		for _, pos := range summary.Positions {
			if pos.Quantity <= 0 {
				t.Fatalf("non-positive position retained: %+v", pos)
			}
			basis += pos.Quantity * pos.AveragePrice
		}
		if math.Abs(summary.Cash+basis-(initial+summary.RealizedPnL)) > 1e-6 {
			t.Fatalf("conservation broken at step %d: cash=%v basis=%v realized=%v", i, summary.Cash, basis, summary.RealizedPnL)
		}
	}

	var realized float64
	for _, tr := range ledger.History(0) {
		if tr.RealizedPnL != nil {
			realized += *tr.RealizedPnL
		}
	}
	if math.Abs(realized-ledger.RealizedPnL()) > 1e-6 {
		t.Fatalf("trade pnl %v does not match ledger realized %v", realized, ledger.RealizedPnL())
	}
}
