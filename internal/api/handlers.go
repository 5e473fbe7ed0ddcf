package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mt5-bridge/internal/gateway"
)

type connectRequest struct {
	Login    int64  `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
	Server   string `json:"server" binding:"required"`
}

type sessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type placeOrderRequest struct {
	SessionID  string  `json:"session_id" binding:"required"`
	Symbol     string  `json:"symbol" binding:"required"`
	Type       *int    `json:"type" binding:"required"`
	Volume     float64 `json:"volume" binding:"required,gt=0"`
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Comment    string  `json:"comment"`
	Slippage   int     `json:"slippage"`
}

type closePositionRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	Ticket    int64   `json:"ticket" binding:"required"`
	Volume    float64 `json:"volume"`
}

type closePartialRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	Ticket    int64   `json:"ticket" binding:"required"`
	Volume    float64 `json:"volume" binding:"required,gt=0"`
}

type modifyPositionRequest struct {
	SessionID  string   `json:"session_id" binding:"required"`
	Ticket     int64    `json:"ticket" binding:"required"`
	StopLoss   *float64 `json:"sl"`
	TakeProfit *float64 `json:"tp"`
}

type cancelOrderRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Ticket    int64  `json:"ticket" binding:"required"`
}

type historyRequest struct {
	SessionID string `json:"session_id"`
	Symbol    string `json:"symbol" binding:"required"`
	Timeframe string `json:"timeframe" binding:"required"`
	Count     int    `json:"count"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
}

// respond emits the envelope. Command failures are still HTTP 200; the
// envelope carries success/failure.
func respond(c *gin.Context, res *gateway.Result) {
	c.JSON(http.StatusOK, res)
}

func bindFail(c *gin.Context, err error) {
	c.JSON(http.StatusOK, gateway.Failf("Invalid request: %v", err))
}

func (s *Server) connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Gateway.Connect(c.Request.Context(), req.Login, req.Password, req.Server))
}

func (s *Server) disconnect(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.Disconnect(req.SessionID))
}

func (s *Server) accountInfo(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.AccountInfo(c.Request.Context(), req.SessionID))
}

func (s *Server) positions(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.Positions(c.Request.Context(), req.SessionID))
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.PlaceOrder(c.Request.Context(), gateway.PlaceOrderRequest{
		SessionID:  req.SessionID,
		Symbol:     req.Symbol,
		Type:       *req.Type,
		Volume:     req.Volume,
		Price:      req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Comment:    req.Comment,
		Slippage:   req.Slippage,
	}))
}

func (s *Server) closePosition(c *gin.Context) {
	var req closePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.ClosePosition(c.Request.Context(), req.SessionID, req.Ticket, req.Volume))
}

// closePartial is the historical partial-close endpoint; volume is
// mandatory here while close_position treats it as optional.
func (s *Server) closePartial(c *gin.Context) {
	var req closePartialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.ClosePosition(c.Request.Context(), req.SessionID, req.Ticket, req.Volume))
}

func (s *Server) modifyPosition(c *gin.Context) {
	var req modifyPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.ModifyPosition(c.Request.Context(), req.SessionID, req.Ticket, req.StopLoss, req.TakeProfit))
}

func (s *Server) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.CancelOrder(c.Request.Context(), req.SessionID, req.Ticket))
}

func (s *Server) historicalData(c *gin.Context) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	respond(c, s.Gateway.History(c.Request.Context(), gateway.HistoryRequest{
		SessionID: req.SessionID,
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Count:     req.Count,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}))
}

func (s *Server) price(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		respond(c, gateway.Fail("Missing symbol parameter"))
		return
	}
	respond(c, s.Gateway.Price(c.Request.Context(), c.Query("session_id"), symbol))
}

func (s *Server) symbols(c *gin.Context) {
	respond(c, s.Gateway.ListSymbols(c.Request.Context(), c.Query("session_id"), c.Query("mask")))
}

func (s *Server) sessions(c *gin.Context) {
	count, sessions := s.Gateway.SessionsSummary()
	c.JSON(http.StatusOK, gin.H{
		"active_sessions": count,
		"sessions":        sessions,
	})
}
