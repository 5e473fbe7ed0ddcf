package terminal

import (
	"context"
	"errors"
	"time"
)

// Connector errors. NotFound is deliberately distinct from transient
// failures so callers can branch on the tag instead of inspecting nil
// results or message text.
var (
	ErrNotConnected = errors.New("terminal not connected")
	ErrNotFound     = errors.New("not found")
	ErrNoResult     = errors.New("terminal returned no result")
)

// Connector abstracts the trading terminal's local API.
type Connector interface {
	// Initialize starts the terminal binding. path may be empty to use
	// the default install location.
	Initialize(path string) error
	Login(ctx context.Context, login int64, password, server string) error
	Shutdown()

	AccountInfo(ctx context.Context) (*AccountInfo, error)
	Positions(ctx context.Context) ([]Position, error)
	PositionByTicket(ctx context.Context, ticket int64) (*Position, error)
	PendingOrders(ctx context.Context) ([]Order, error)

	SymbolInfo(ctx context.Context, name string) (*SymbolInfo, error)
	SymbolTick(ctx context.Context, name string) (*Tick, error)
	SymbolSelect(ctx context.Context, name string, visible bool) error
	Symbols(ctx context.Context, mask string) ([]string, error)

	CopyRatesFromPos(ctx context.Context, symbol string, tf Timeframe, offset, count int) ([]Bar, error)
	CopyRatesRange(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]Bar, error)

	OrderSend(ctx context.Context, req TradeRequest) (*TradeResult, error)
}
