package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mt5-bridge/internal/session"
	"mt5-bridge/internal/terminal"
)

// stubConnector records calls and serves scripted responses.
type stubConnector struct {
	calls []string

	tick        terminal.Tick
	tickErr     error
	account     terminal.AccountInfo
	positions   []terminal.Position
	position    *terminal.Position
	positionErr error
	symbols     []string
	bars        []terminal.Bar
	barsErr     error

	sendResults []*terminal.TradeResult
	sendErr     error
	sendIdx     int
	lastSend    terminal.TradeRequest
}

func (s *stubConnector) record(name string) { s.calls = append(s.calls, name) }

func (s *stubConnector) count(name string) int {
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (s *stubConnector) Initialize(string) error { return nil }
func (s *stubConnector) Login(context.Context, int64, string, string) error {
	s.record("login")
	return nil
}
func (s *stubConnector) Shutdown() {}

func (s *stubConnector) AccountInfo(context.Context) (*terminal.AccountInfo, error) {
	s.record("account_info")
	acc := s.account
	return &acc, nil
}

func (s *stubConnector) Positions(context.Context) ([]terminal.Position, error) {
	s.record("positions")
	return s.positions, nil
}

func (s *stubConnector) PositionByTicket(_ context.Context, ticket int64) (*terminal.Position, error) {
	s.record("position_by_ticket")
	if s.positionErr != nil {
		return nil, s.positionErr
	}
	if s.position == nil {
		return nil, terminal.ErrNotFound
	}
	p := *s.position
	return &p, nil
}

func (s *stubConnector) PendingOrders(context.Context) ([]terminal.Order, error) {
	s.record("pending_orders")
	return nil, nil
}

func (s *stubConnector) SymbolInfo(_ context.Context, name string) (*terminal.SymbolInfo, error) {
	s.record("symbol_info")
	return &terminal.SymbolInfo{Name: name, VolumeMin: 0.01, VolumeMax: 100}, nil
}

func (s *stubConnector) SymbolTick(context.Context, string) (*terminal.Tick, error) {
	s.record("symbol_tick")
	if s.tickErr != nil {
		return nil, s.tickErr
	}
	tick := s.tick
	return &tick, nil
}

func (s *stubConnector) SymbolSelect(context.Context, string, bool) error {
	s.record("symbol_select")
	return nil
}

func (s *stubConnector) Symbols(context.Context, string) ([]string, error) {
	s.record("symbols")
	return s.symbols, nil
}

func (s *stubConnector) CopyRatesFromPos(_ context.Context, _ string, _ terminal.Timeframe, _, count int) ([]terminal.Bar, error) {
	s.record("copy_rates_from_pos")
	if s.barsErr != nil {
		return nil, s.barsErr
	}
	if count > len(s.bars) {
		return s.bars, nil
	}
	return s.bars[:count], nil
}

func (s *stubConnector) CopyRatesRange(context.Context, string, terminal.Timeframe, time.Time, time.Time) ([]terminal.Bar, error) {
	s.record("copy_rates_range")
	if s.barsErr != nil {
		return nil, s.barsErr
	}
	return s.bars, nil
}

func (s *stubConnector) OrderSend(_ context.Context, req terminal.TradeRequest) (*terminal.TradeResult, error) {
	s.record("order_send")
	s.lastSend = req
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	if len(s.sendResults) == 0 {
		return &terminal.TradeResult{Retcode: terminal.RetcodeDone, Order: 1, Price: req.Price}, nil
	}
	res := s.sendResults[s.sendIdx]
	if s.sendIdx < len(s.sendResults)-1 {
		s.sendIdx++
	}
	return res, nil
}

func fastPolicy() Policy {
	p := DefaultPolicy()
	p.Order.RetryDelay = time.Millisecond
	return p
}

func newTestGateway(t *testing.T, stub *stubConnector) (*Gateway, string) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { store.Close() })

	gw := New(store, stub, fastPolicy(), zap.NewNop())
	sess, err := store.Create(12345, "Test-Demo")
	require.NoError(t, err)
	return gw, sess.ID
}

func TestUnknownSessionRejectedWithoutConnectorCall(t *testing.T) {
	stub := &stubConnector{}
	gw, _ := newTestGateway(t, stub)
	ctx := context.Background()

	results := []*Result{
		gw.AccountInfo(ctx, "bogus"),
		gw.Positions(ctx, "bogus"),
		gw.PlaceOrder(ctx, PlaceOrderRequest{SessionID: "bogus", Symbol: "EURUSD", Type: 0, Volume: 0.1}),
		gw.ClosePosition(ctx, "bogus", 1, 0),
		gw.ModifyPosition(ctx, "bogus", 1, nil, nil),
		gw.CancelOrder(ctx, "bogus", 1),
		gw.History(ctx, HistoryRequest{SessionID: "bogus", Symbol: "EURUSD", Timeframe: "M15"}),
	}
	for _, res := range results {
		assert.False(t, res.Success)
		assert.Equal(t, "Invalid session ID", res.Error)
	}
	assert.Empty(t, stub.calls, "rejected commands must not reach the connector")
}

func TestConnectCreatesTouchableSession(t *testing.T) {
	stub := &stubConnector{account: terminal.AccountInfo{Login: 777, Currency: "USD"}}
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	gw := New(store, stub, fastPolicy(), zap.NewNop())

	resp := gw.Connect(context.Background(), 777, "secret", "Broker-Live")
	require.True(t, resp.Success)
	assert.Contains(t, resp.SessionID, "777")
	assert.True(t, store.Touch(resp.SessionID))
	require.NotNil(t, resp.AccountInfo)
	assert.Equal(t, "LIVE", resp.AccountInfo.Mode)
}

func TestConnectLoginFailure(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	gw := New(store, &failingLogin{}, fastPolicy(), zap.NewNop())

	resp := gw.Connect(context.Background(), 1, "bad", "srv")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Login failed")
	assert.Equal(t, 0, store.Len())
}

type failingLogin struct{ stubConnector }

func (failingLogin) Login(context.Context, int64, string, string) error {
	return context.DeadlineExceeded
}

func TestPlaceOrderResolvesQuoteSide(t *testing.T) {
	for _, tc := range []struct {
		name      string
		orderType int
		want      float64
	}{
		{"buy fills at ask", terminal.OrderTypeBuy, 1.1002},
		{"sell fills at bid", terminal.OrderTypeSell, 1.1000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubConnector{tick: terminal.Tick{Bid: 1.1000, Ask: 1.1002}}
			gw, sid := newTestGateway(t, stub)

			res := gw.PlaceOrder(context.Background(), PlaceOrderRequest{
				SessionID: sid, Symbol: "EURUSD", Type: tc.orderType, Volume: 0.1,
			})
			require.True(t, res.Success, "error: %s", res.Error)
			assert.Equal(t, tc.want, stub.lastSend.Price)
		})
	}
}

func TestPlaceOrderHonorsCallerPrice(t *testing.T) {
	stub := &stubConnector{tick: terminal.Tick{Bid: 1.1000, Ask: 1.1002}}
	gw, sid := newTestGateway(t, stub)

	res := gw.PlaceOrder(context.Background(), PlaceOrderRequest{
		SessionID: sid, Symbol: "EURUSD", Type: terminal.OrderTypeBuy, Volume: 0.1, Price: 1.0950,
	})
	require.True(t, res.Success)
	assert.Equal(t, 1.0950, stub.lastSend.Price)
}

func TestPlaceOrderRequoteRetriesThenGivesUp(t *testing.T) {
	stub := &stubConnector{
		tick: terminal.Tick{Bid: 1.1000, Ask: 1.1002},
		sendResults: []*terminal.TradeResult{
			{Retcode: terminal.RetcodeRequote, Comment: "Requote"},
		},
	}
	gw, sid := newTestGateway(t, stub)

	res := gw.PlaceOrder(context.Background(), PlaceOrderRequest{
		SessionID: sid, Symbol: "EURUSD", Type: terminal.OrderTypeBuy, Volume: 0.1,
	})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "3 attempts")
	assert.Equal(t, 3, stub.count("order_send"))
	// the quote must be refreshed before every resubmission
	assert.Equal(t, 3, stub.count("symbol_tick"))
}

func TestPlaceOrderRequoteSucceedsOnRetry(t *testing.T) {
	stub := &stubConnector{
		tick: terminal.Tick{Bid: 1.1000, Ask: 1.1002},
		sendResults: []*terminal.TradeResult{
			{Retcode: terminal.RetcodeRequote, Comment: "Requote"},
			{Retcode: terminal.RetcodeDone, Order: 555, Price: 1.1003},
		},
	}
	gw, sid := newTestGateway(t, stub)

	res := gw.PlaceOrder(context.Background(), PlaceOrderRequest{
		SessionID: sid, Symbol: "EURUSD", Type: terminal.OrderTypeBuy, Volume: 0.1,
	})
	require.True(t, res.Success, "error: %s", res.Error)
	data, ok := res.Data.(*OrderPlacedData)
	require.True(t, ok)
	assert.Equal(t, int64(555), data.Ticket)
	assert.Equal(t, 2, stub.count("order_send"))
}

func TestPlaceOrderRejectFailsImmediately(t *testing.T) {
	stub := &stubConnector{
		tick: terminal.Tick{Bid: 1.1000, Ask: 1.1002},
		sendResults: []*terminal.TradeResult{
			{Retcode: terminal.RetcodeNoMoney, Comment: "No money"},
		},
	}
	gw, sid := newTestGateway(t, stub)

	res := gw.PlaceOrder(context.Background(), PlaceOrderRequest{
		SessionID: sid, Symbol: "EURUSD", Type: terminal.OrderTypeBuy, Volume: 0.1,
	})
	require.False(t, res.Success)
	assert.Equal(t, "Order failed: No money", res.Error)
	assert.Equal(t, 1, stub.count("order_send"))
}

func TestPlaceOrderNoResult(t *testing.T) {
	stub := &stubConnector{
		tick:    terminal.Tick{Bid: 1.1000, Ask: 1.1002},
		sendErr: terminal.ErrNoResult,
	}
	gw, sid := newTestGateway(t, stub)

	res := gw.PlaceOrder(context.Background(), PlaceOrderRequest{
		SessionID: sid, Symbol: "EURUSD", Type: terminal.OrderTypeBuy, Volume: 0.1,
	})
	require.False(t, res.Success)
	assert.Equal(t, "Order send failed", res.Error)
}

func TestClosePositionUnknownTicket(t *testing.T) {
	stub := &stubConnector{positionErr: terminal.ErrNotFound}
	gw, sid := newTestGateway(t, stub)

	res := gw.ClosePosition(context.Background(), sid, 42, 0)
	require.False(t, res.Success)
	assert.Equal(t, "Position 42 not found", res.Error)
	assert.Zero(t, stub.count("symbol_tick"))
	assert.Zero(t, stub.count("order_send"))
}

func TestClosePositionInvalidPartialVolume(t *testing.T) {
	stub := &stubConnector{
		position: &terminal.Position{Ticket: 7, Symbol: "EURUSD", Type: terminal.OrderTypeBuy, Volume: 1.0},
		tick:     terminal.Tick{Bid: 1.1, Ask: 1.1002},
	}
	gw, sid := newTestGateway(t, stub)

	for _, vol := range []float64{1.0, 2.0, -0.5} {
		res := gw.ClosePosition(context.Background(), sid, 7, vol)
		require.False(t, res.Success, "volume %v", vol)
		assert.Equal(t, "Invalid partial volume", res.Error)
	}
	assert.Zero(t, stub.count("order_send"))
}

func TestClosePositionUsesOpposingQuote(t *testing.T) {
	stub := &stubConnector{
		position: &terminal.Position{Ticket: 7, Symbol: "EURUSD", Type: terminal.OrderTypeBuy, Volume: 1.0},
		tick:     terminal.Tick{Bid: 1.1000, Ask: 1.1002},
	}
	gw, sid := newTestGateway(t, stub)

	res := gw.ClosePosition(context.Background(), sid, 7, 0)
	require.True(t, res.Success, "error: %s", res.Error)
	// closing a long sells at bid
	assert.Equal(t, terminal.OrderTypeSell, stub.lastSend.Type)
	assert.Equal(t, 1.1000, stub.lastSend.Price)
	assert.Equal(t, int64(7), stub.lastSend.Position)
}

func TestModifyPositionKeepsUnsetLevels(t *testing.T) {
	stub := &stubConnector{
		position: &terminal.Position{Ticket: 9, Symbol: "EURUSD", Type: terminal.OrderTypeBuy, Volume: 1.0, StopLoss: 1.05, TakeProfit: 1.15},
	}
	gw, sid := newTestGateway(t, stub)

	newSL := 1.06
	res := gw.ModifyPosition(context.Background(), sid, 9, &newSL, nil)
	require.True(t, res.Success, "error: %s", res.Error)
	assert.Equal(t, 1.06, stub.lastSend.StopLoss)
	assert.Equal(t, 1.15, stub.lastSend.TakeProfit)
	assert.Equal(t, terminal.TradeActionSLTP, stub.lastSend.Action)
}

func TestListSymbolsBypassesSessionCheck(t *testing.T) {
	stub := &stubConnector{symbols: []string{"EURUSD", "XAUUSD"}}
	gw, _ := newTestGateway(t, stub)

	res := gw.ListSymbols(context.Background(), "", "")
	require.True(t, res.Success)
	assert.Equal(t, 1, stub.count("symbols"))
}

func TestListSymbolsCanRequireSession(t *testing.T) {
	stub := &stubConnector{symbols: []string{"EURUSD"}}
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()

	policy := fastPolicy()
	policy.AuthExempt = nil // lock every command down
	gw := New(store, stub, policy, zap.NewNop())

	res := gw.ListSymbols(context.Background(), "", "")
	require.False(t, res.Success)
	assert.Equal(t, "Invalid session ID", res.Error)
	assert.Empty(t, stub.calls)
}

func TestSessionActivityBumpedBeforeConnectorCall(t *testing.T) {
	stub := &stubConnector{tickErr: terminal.ErrNotFound}
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	gw := New(store, stub, fastPolicy(), zap.NewNop())

	sess, err := store.Create(1, "srv")
	require.NoError(t, err)
	before, err := store.Get(sess.ID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	res := gw.PlaceOrder(context.Background(), PlaceOrderRequest{
		SessionID: sess.ID, Symbol: "EURUSD", Type: 0, Volume: 0.1,
	})
	require.False(t, res.Success)

	after, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.True(t, after.LastActivity.After(before.LastActivity),
		"failed command must still count as activity")
}

func TestDisconnectRemovesSession(t *testing.T) {
	stub := &stubConnector{}
	gw, sid := newTestGateway(t, stub)

	res := gw.Disconnect(sid)
	require.True(t, res.Success)
	res = gw.Disconnect(sid)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid session ID", res.Error)
}

func TestInvalidOrderType(t *testing.T) {
	stub := &stubConnector{}
	gw, sid := newTestGateway(t, stub)

	res := gw.PlaceOrder(context.Background(), PlaceOrderRequest{
		SessionID: sid, Symbol: "EURUSD", Type: 3, Volume: 0.1,
	})
	require.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Error, "Invalid order type"))
}
