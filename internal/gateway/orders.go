package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mt5-bridge/internal/terminal"
)

// PlaceOrderRequest carries a market order intent.
type PlaceOrderRequest struct {
	SessionID  string
	Symbol     string
	Type       int // 0=BUY, 1=SELL
	Volume     float64
	Price      float64 // 0 means "use the current quote"
	StopLoss   float64
	TakeProfit float64
	Comment    string
	Slippage   int // deviation override in points, 0 means policy default
}

// PlaceOrder submits a market order, resolving the price from the live
// quote (ask for buy, bid for sell) unless the caller pinned one.
// Requotes are retried with a fresh quote up to the policy bound.
func (g *Gateway) PlaceOrder(ctx context.Context, req PlaceOrderRequest) *Result {
	if rej := g.requireSession(CmdPlaceOrder, req.SessionID); rej != nil {
		return rej
	}
	if req.Type != terminal.OrderTypeBuy && req.Type != terminal.OrderTypeSell {
		return Failf("Invalid order type: %d", req.Type)
	}
	if req.Volume <= 0 {
		return Fail("Invalid volume")
	}

	if _, err := g.term.SymbolInfo(ctx, req.Symbol); err != nil {
		if errors.Is(err, terminal.ErrNotFound) {
			return Failf("Symbol %s not found", req.Symbol)
		}
		return Failf("Failed to get symbol info: %v", err)
	}

	comment := req.Comment
	if comment == "" {
		comment = "API Order"
	}
	deviation := req.Slippage
	if deviation <= 0 {
		deviation = g.policy.Order.Deviation
	}

	attempts := g.policy.Order.RetryAttempts
	var last *terminal.TradeResult
	for attempt := 1; attempt <= attempts; attempt++ {
		tick, err := g.term.SymbolTick(ctx, req.Symbol)
		if err != nil {
			return Failf("Failed to get current price for %s", req.Symbol)
		}

		// Caller-pinned price only counts for the first attempt; after
		// a requote that price is stale.
		price := req.Price
		if price == 0 || attempt > 1 {
			if req.Type == terminal.OrderTypeBuy {
				price = tick.Ask
			} else {
				price = tick.Bid
			}
		}

		result, err := g.term.OrderSend(ctx, terminal.TradeRequest{
			Action:      terminal.TradeActionDeal,
			Symbol:      req.Symbol,
			Volume:      req.Volume,
			Type:        req.Type,
			Price:       price,
			StopLoss:    req.StopLoss,
			TakeProfit:  req.TakeProfit,
			Deviation:   deviation,
			Magic:       g.policy.Order.Magic,
			Comment:     comment,
			TypeTime:    terminal.OrderTimeGTC,
			TypeFilling: g.policy.fillingCode(),
		})
		if err != nil || result == nil {
			return Fail("Order send failed")
		}

		if result.Done() {
			g.log.Info("order placed",
				zap.Int64("ticket", result.Order),
				zap.String("symbol", req.Symbol),
				zap.Float64("price", result.Price),
				zap.Int("attempt", attempt))
			return OK(&OrderPlacedData{
				Ticket:     result.Order,
				Symbol:     req.Symbol,
				Type:       req.Type,
				Volume:     req.Volume,
				Price:      result.Price,
				StopLoss:   req.StopLoss,
				TakeProfit: req.TakeProfit,
				Comment:    comment,
				Time:       time.Now().Format(time.RFC3339),
			})
		}

		if !result.Requoted() {
			return Failf("Order failed: %s", result.Comment)
		}

		last = result
		g.log.Warn("order requoted",
			zap.String("symbol", req.Symbol),
			zap.Int("attempt", attempt),
			zap.Int("retcode", result.Retcode))
		if attempt < attempts {
			time.Sleep(g.policy.Order.RetryDelay)
		}
	}

	comment = "requote"
	if last != nil && last.Comment != "" {
		comment = last.Comment
	}
	return Failf("Order failed after %d attempts: %s", attempts, comment)
}

// ClosePosition closes a position fully, or partially when volume is
// set to less than the open volume.
func (g *Gateway) ClosePosition(ctx context.Context, sessionID string, ticket int64, volume float64) *Result {
	if rej := g.requireSession(CmdClosePosition, sessionID); rej != nil {
		return rej
	}

	pos, err := g.term.PositionByTicket(ctx, ticket)
	if err != nil {
		if errors.Is(err, terminal.ErrNotFound) {
			return Failf("Position %d not found", ticket)
		}
		return Failf("Failed to get position %d: %v", ticket, err)
	}

	if volume != 0 && (volume < 0 || volume >= pos.Volume) {
		return Fail("Invalid partial volume")
	}

	tick, err := g.term.SymbolTick(ctx, pos.Symbol)
	if err != nil {
		return Failf("No tick data for %s", pos.Symbol)
	}

	// Closing reverses the position at the opposing quote side.
	closeType := terminal.OrderTypeSell
	price := tick.Bid
	if pos.Type == terminal.OrderTypeSell {
		closeType = terminal.OrderTypeBuy
		price = tick.Ask
	}
	closeVolume := pos.Volume
	comment := "Close by API"
	if volume > 0 {
		closeVolume = volume
		comment = "Partial close by API"
	}

	result, err := g.term.OrderSend(ctx, terminal.TradeRequest{
		Action:      terminal.TradeActionDeal,
		Position:    ticket,
		Symbol:      pos.Symbol,
		Volume:      closeVolume,
		Type:        closeType,
		Price:       price,
		Deviation:   g.policy.Order.Deviation,
		Magic:       g.policy.Order.Magic,
		Comment:     comment,
		TypeTime:    terminal.OrderTimeGTC,
		TypeFilling: g.policy.fillingCode(),
	})
	if err != nil || result == nil {
		return Fail("Order send failed")
	}
	if !result.Done() {
		return Failf("Close failed: %s", result.Comment)
	}

	return OK(map[string]any{
		"closed": true,
		"ticket": ticket,
		"volume": closeVolume,
		"price":  result.Price,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ModifyPosition updates stop loss / take profit, keeping the existing
// level for any field the caller leaves unset.
func (g *Gateway) ModifyPosition(ctx context.Context, sessionID string, ticket int64, stopLoss, takeProfit *float64) *Result {
	if rej := g.requireSession(CmdModifyPosition, sessionID); rej != nil {
		return rej
	}

	pos, err := g.term.PositionByTicket(ctx, ticket)
	if err != nil {
		if errors.Is(err, terminal.ErrNotFound) {
			return Failf("Position %d not found", ticket)
		}
		return Failf("Failed to get position %d: %v", ticket, err)
	}

	sl := pos.StopLoss
	if stopLoss != nil {
		sl = *stopLoss
	}
	tp := pos.TakeProfit
	if takeProfit != nil {
		tp = *takeProfit
	}

	result, err := g.term.OrderSend(ctx, terminal.TradeRequest{
		Action:     terminal.TradeActionSLTP,
		Position:   ticket,
		Symbol:     pos.Symbol,
		StopLoss:   sl,
		TakeProfit: tp,
		TypeTime:   terminal.OrderTimeGTC,
	})
	if err != nil || result == nil {
		return Fail("Modify request failed")
	}
	if !result.Done() {
		return Failf("Modify failed: %s", result.Comment)
	}

	return OK(map[string]any{"modified": true, "ticket": ticket, "sl": sl, "tp": tp})
}

// CancelOrder removes a pending order by ticket.
func (g *Gateway) CancelOrder(ctx context.Context, sessionID string, ticket int64) *Result {
	if rej := g.requireSession(CmdCancelOrder, sessionID); rej != nil {
		return rej
	}

	result, err := g.term.OrderSend(ctx, terminal.TradeRequest{
		Action:   terminal.TradeActionRemove,
		Position: ticket,
	})
	if err != nil || result == nil {
		return Fail("Cancel request failed")
	}
	if !result.Done() {
		return Failf("Cancel failed: %s", result.Comment)
	}

	return OK(map[string]any{"canceled": true, "ticket": ticket})
}
