package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"mt5-bridge/internal/session"
	"mt5-bridge/internal/terminal"
)

// Gateway authenticates typed commands against the session store,
// delegates to the terminal connector and normalizes every outcome into
// the response envelope.
type Gateway struct {
	store  session.Store
	term   terminal.Connector
	policy Policy
	log    *zap.Logger
}

func New(store session.Store, term terminal.Connector, policy Policy, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{store: store, term: term, policy: policy, log: log}
}

// requireSession validates and touches the session for cmd. A non-nil
// return is the rejection envelope. last_activity is bumped before the
// connector is called, so failed calls still count as activity.
func (g *Gateway) requireSession(cmd Command, sessionID string) *Result {
	if g.policy.exempt(cmd) {
		if sessionID != "" {
			g.store.Touch(sessionID)
		}
		return nil
	}
	if !g.store.Touch(sessionID) {
		return Fail(invalidSession)
	}
	return nil
}

// Connect authenticates against the terminal and registers a session.
func (g *Gateway) Connect(ctx context.Context, login int64, password, server string) *ConnectResponse {
	g.log.Info("connect attempt", zap.Int64("login", login), zap.String("server", server))

	if err := g.term.Login(ctx, login, password, server); err != nil {
		g.log.Warn("terminal login failed", zap.Int64("login", login), zap.Error(err))
		return &ConnectResponse{Success: false, Error: "Login failed: " + err.Error()}
	}

	acc, err := g.term.AccountInfo(ctx)
	if err != nil {
		return &ConnectResponse{Success: false, Error: "Failed to get account information"}
	}

	sess, err := g.store.Create(login, server)
	if err != nil {
		return &ConnectResponse{Success: false, Error: "Failed to create session: " + err.Error()}
	}

	g.log.Info("session created", zap.String("session_id", sess.ID), zap.Int64("login", login))
	return &ConnectResponse{
		Success:     true,
		SessionID:   sess.ID,
		AccountInfo: accountData(acc, server, nil, nil),
	}
}

// Disconnect drops a session. The terminal connection itself is shared
// across sessions and stays up.
func (g *Gateway) Disconnect(sessionID string) *Result {
	if !g.store.Exists(sessionID) {
		return Fail(invalidSession)
	}
	_ = g.store.Delete(sessionID)
	return OK(map[string]any{"disconnected": true})
}

// AccountInfo returns the live account snapshot with open positions and
// pending orders.
func (g *Gateway) AccountInfo(ctx context.Context, sessionID string) *Result {
	if rej := g.requireSession(CmdAccountInfo, sessionID); rej != nil {
		return rej
	}

	acc, err := g.term.AccountInfo(ctx)
	if err != nil {
		if errors.Is(err, terminal.ErrNotConnected) {
			return Fail("Terminal not connected")
		}
		return Failf("Failed to get account info: %v", err)
	}

	positions, err := g.term.Positions(ctx)
	if err != nil && !errors.Is(err, terminal.ErrNotFound) {
		return Failf("Failed to get positions: %v", err)
	}
	orders, err := g.term.PendingOrders(ctx)
	if err != nil && !errors.Is(err, terminal.ErrNotFound) {
		return Failf("Failed to get orders: %v", err)
	}

	return OK(accountData(acc, acc.Server, positions, orders))
}

// Price returns the current bid/ask for a symbol. Public by default.
func (g *Gateway) Price(ctx context.Context, sessionID, symbol string) *Result {
	if rej := g.requireSession(CmdPrice, sessionID); rej != nil {
		return rej
	}

	if err := g.term.SymbolSelect(ctx, symbol, true); err != nil {
		if errors.Is(err, terminal.ErrNotFound) {
			return Failf("Symbol %s not found or cannot be selected", symbol)
		}
		return Failf("Failed to select symbol %s: %v", symbol, err)
	}

	tick, err := g.term.SymbolTick(ctx, symbol)
	if err != nil {
		return Failf("Failed to get current price for %s", symbol)
	}

	return OK(&PriceData{
		Symbol:    symbol,
		Bid:       tick.Bid,
		Ask:       tick.Ask,
		Spread:    tick.Ask - tick.Bid,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Positions lists open positions, each priced at the current quote.
func (g *Gateway) Positions(ctx context.Context, sessionID string) *Result {
	if rej := g.requireSession(CmdPositions, sessionID); rej != nil {
		return rej
	}

	positions, err := g.term.Positions(ctx)
	if err != nil {
		return Failf("Failed to get positions: %v", err)
	}

	out := make([]PositionData, 0, len(positions))
	for _, p := range positions {
		pd := positionData(p)
		// refresh the mark price; fall back to what the terminal stored
		if tick, err := g.term.SymbolTick(ctx, p.Symbol); err == nil {
			if p.Type == terminal.OrderTypeBuy {
				pd.PriceCurrent = tick.Bid
			} else {
				pd.PriceCurrent = tick.Ask
			}
		}
		out = append(out, pd)
	}
	return OK(out)
}

// ListSymbols returns the tradable symbol names, optionally filtered.
func (g *Gateway) ListSymbols(ctx context.Context, sessionID, mask string) *Result {
	if rej := g.requireSession(CmdListSymbols, sessionID); rej != nil {
		return rej
	}

	symbols, err := g.term.Symbols(ctx, mask)
	if err != nil {
		return Failf("Failed to get symbols: %v", err)
	}
	return OK(map[string]any{"symbols": symbols, "count": len(symbols)})
}

// SessionsSummary reports the active session table.
func (g *Gateway) SessionsSummary() (int, []session.Session) {
	sessions, err := g.store.List()
	if err != nil {
		g.log.Warn("session list failed", zap.Error(err))
		return 0, nil
	}
	return len(sessions), sessions
}

func accountData(acc *terminal.AccountInfo, server string, positions []terminal.Position, orders []terminal.Order) *AccountData {
	data := &AccountData{
		Login:       acc.Login,
		Server:      acc.Server,
		Balance:     acc.Balance,
		Equity:      acc.Equity,
		Margin:      acc.Margin,
		FreeMargin:  acc.FreeMargin,
		MarginLevel: acc.MarginLevel,
		Currency:    acc.Currency,
		Leverage:    acc.Leverage,
		Company:     acc.Company,
		Connected:   true,
		Mode:        accountMode(server),
	}
	for _, p := range positions {
		data.Positions = append(data.Positions, positionData(p))
	}
	for _, o := range orders {
		data.Orders = append(data.Orders, OrderData{
			Ticket:     o.Ticket,
			Symbol:     o.Symbol,
			Type:       o.Type,
			Volume:     o.Volume,
			PriceOpen:  o.PriceOpen,
			StopLoss:   o.StopLoss,
			TakeProfit: o.TakeProfit,
			Comment:    o.Comment,
		})
	}
	return data
}

func positionData(p terminal.Position) PositionData {
	return PositionData{
		Ticket:       p.Ticket,
		Symbol:       p.Symbol,
		Type:         p.Type,
		Volume:       p.Volume,
		PriceOpen:    p.PriceOpen,
		PriceCurrent: p.PriceCurrent,
		StopLoss:     p.StopLoss,
		TakeProfit:   p.TakeProfit,
		Profit:       p.Profit,
		Swap:         p.Swap,
		Time:         p.Time,
		Comment:      p.Comment,
	}
}

// accountMode infers LIVE vs DEMO from the broker server name.
func accountMode(server string) string {
	if strings.Contains(strings.ToLower(server), "live") {
		return "LIVE"
	}
	return "DEMO"
}
