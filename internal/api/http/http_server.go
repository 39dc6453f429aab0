package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/trading-venue/internal/api/dto"
	"github.com/olyamironova/trading-venue/internal/audit"
	"github.com/olyamironova/trading-venue/internal/core"
	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/middleware"
	"github.com/olyamironova/trading-venue/internal/outbox"
	"github.com/olyamironova/trading-venue/internal/problem"
)

type HTTPServer struct {
	Eng    *core.Engine
	Audit  *audit.Logger
	Outbox *outbox.Store

	idempotency middleware.IdempotencyStore
}

func NewHTTPServer(eng *core.Engine, auditLog *audit.Logger, events *outbox.Store) *HTTPServer {
	return &HTTPServer{
		Eng:         eng,
		Audit:       auditLog,
		Outbox:      events,
		idempotency: middleware.NewInMemoryIdempotencyStore(),
	}
}

// Router builds the gin engine with the full middleware chain and route
// table. Exposed separately from Run for handler tests.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.Default()

	r.Use(middleware.Correlation())
	r.Use(middleware.Prometheus())
	r.Use(middleware.ActorContext())

	rl := middleware.NewRateLimiter(time.Millisecond * 100)
	r.Use(rl.Middleware())

	role := middleware.RequireRole

	r.POST("/markets", role("OPS", "ADMIN"), s.createMarket)
	r.GET("/markets", role("TRADER", "MARKET_MAKER", "ADMIN", "AUDITOR", "OPS"), s.listMarkets)
	r.POST("/markets/:id/pause", role("OPS", "ADMIN"), s.pauseMarket)
	r.POST("/markets/:id/resume", role("OPS", "ADMIN"), s.resumeMarket)
	r.GET("/markets/:id/orderbook", role("TRADER", "MARKET_MAKER", "ADMIN"), s.getOrderbook)
	r.POST("/markets/:id/orders",
		role("TRADER", "MARKET_MAKER", "ADMIN"),
		middleware.Idempotency(s.idempotency),
		s.submitOrder)
	r.GET("/markets/:id/orders", role("TRADER", "MARKET_MAKER", "ADMIN", "AUDITOR"), s.listOrders)
	r.GET("/markets/:id/trades", role("TRADER", "MARKET_MAKER", "ADMIN", "AUDITOR"), s.listTrades)
	r.POST("/orders/:id/cancel", role("TRADER", "MARKET_MAKER", "ADMIN"), s.cancelOrder)
	r.GET("/orders/:id", role("TRADER", "MARKET_MAKER", "ADMIN", "AUDITOR"), s.getOrder)
	r.GET("/trades/:id", role("TRADER", "MARKET_MAKER", "ADMIN", "AUDITOR"), s.getTrade)
	r.GET("/audit-log", role("AUDITOR", "ADMIN", "OPS"), s.listAuditLog)
	r.GET("/outbox-events", role("AUDITOR", "ADMIN", "OPS"), s.listOutboxEvents)

	return r
}

func (s *HTTPServer) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *HTTPServer) createMarket(c *gin.Context) {
	var req dto.CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	m, err := s.Eng.CreateMarket(c.Request.Context(), req.InstrumentID, middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, convertMarket(m))
}

func (s *HTTPServer) listMarkets(c *gin.Context) {
	markets := s.Eng.ListMarkets(c.Request.Context())
	out := make([]dto.Market, 0, len(markets))
	for _, m := range markets {
		out = append(out, convertMarket(m))
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) pauseMarket(c *gin.Context) {
	m, err := s.Eng.PauseMarket(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertMarket(m))
}

func (s *HTTPServer) resumeMarket(c *gin.Context) {
	m, err := s.Eng.ResumeMarket(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertMarket(m))
}

func (s *HTTPServer) submitOrder(c *gin.Context) {
	marketID := c.Param("id")
	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	actor := middleware.Actor(c)
	submitReq, err := buildSubmitRequest(marketID, actor, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := s.Eng.SubmitOrder(c.Request.Context(), submitReq, actor)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.OrdersTotal.WithLabelValues(marketID, string(result.Order.Status)).Inc()
	middleware.TradesTotal.WithLabelValues(marketID).Add(float64(len(result.Trades)))
	s.updateDepthGauge(marketID)

	c.JSON(http.StatusCreated, dto.SubmitOrderResponse{
		Order:  convertOrder(result.Order),
		Trades: convertTrades(result.Trades),
	})
}

func (s *HTTPServer) cancelOrder(c *gin.Context) {
	o, err := s.Eng.CancelOrder(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	s.updateDepthGauge(o.MarketID)
	c.JSON(http.StatusOK, convertOrder(o))
}

func (s *HTTPServer) getOrder(c *gin.Context) {
	o, err := s.Eng.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertOrder(o))
}

func (s *HTTPServer) getTrade(c *gin.Context) {
	t, err := s.Eng.GetTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertTrade(t))
}

func (s *HTTPServer) listOrders(c *gin.Context) {
	orders, err := s.Eng.ListOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, convertOrder(o))
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) listTrades(c *gin.Context) {
	trades, err := s.Eng.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertTrades(trades))
}

func (s *HTTPServer) getOrderbook(c *gin.Context) {
	depth := 0
	if levels := c.Query("levels"); levels != "" {
		n, err := strconv.Atoi(levels)
		if err != nil || n < 0 {
			problem.Write(c, http.StatusBadRequest, "Bad Request", "levels must be a non-negative integer")
			return
		}
		depth = n
	}
	snap, err := s.Eng.GetOrderbook(c.Request.Context(), c.Param("id"), depth)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := dto.GetOrderbookResponse{
		Bids:      make([]dto.Order, 0, len(snap.Bids)),
		Asks:      make([]dto.Order, 0, len(snap.Asks)),
		Timestamp: snap.Timestamp,
	}
	for _, o := range snap.Bids {
		resp.Bids = append(resp.Bids, convertOrder(o))
	}
	for _, o := range snap.Asks {
		resp.Asks = append(resp.Asks, convertOrder(o))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) listAuditLog(c *gin.Context) {
	if s.Audit == nil {
		c.JSON(http.StatusOK, []domain.AuditEntry{})
		return
	}
	c.JSON(http.StatusOK, s.Audit.List())
}

func (s *HTTPServer) listOutboxEvents(c *gin.Context) {
	if s.Outbox == nil {
		c.JSON(http.StatusOK, []domain.OutboxEvent{})
		return
	}
	c.JSON(http.StatusOK, s.Outbox.List())
}

func (s *HTTPServer) updateDepthGauge(marketID string) {
	bids, asks := s.Eng.BookDepth(marketID)
	middleware.OrderBookDepth.WithLabelValues(marketID, "bids").Set(float64(bids))
	middleware.OrderBookDepth.WithLabelValues(marketID, "asks").Set(float64(asks))
}

func buildSubmitRequest(marketID string, actor domain.Actor, req *dto.SubmitOrderRequest) (core.SubmitOrderRequest, error) {
	traderID := req.TraderID
	if traderID == "" {
		traderID = actor.ID
	}
	quantity, err := domain.ParseAmount(req.Quantity)
	if err != nil {
		return core.SubmitOrderRequest{}, err
	}
	var price *domain.Amount
	if req.Price != "" {
		p, err := domain.ParseAmount(req.Price)
		if err != nil {
			return core.SubmitOrderRequest{}, err
		}
		price = &p
	}
	return core.SubmitOrderRequest{
		MarketID:    marketID,
		TraderID:    traderID,
		Side:        domain.Side(req.Side),
		Type:        domain.OrderType(req.Type),
		TimeInForce: domain.TimeInForce(req.TimeInForce),
		Price:       price,
		Quantity:    quantity,
	}, nil
}

// writeError maps engine errors onto problem+json responses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrMarketNotActive):
		problem.Write(c, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		problem.Write(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrOrderClosed):
		problem.Write(c, http.StatusConflict, "Conflict", err.Error())
	default:
		problem.Write(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

func convertMarket(m domain.Market) dto.Market {
	return dto.Market{
		ID:           m.ID,
		InstrumentID: m.InstrumentID,
		Status:       string(m.Status),
	}
}

func convertOrder(o domain.Order) dto.Order {
	out := dto.Order{
		ID:          o.ID,
		MarketID:    o.MarketID,
		TraderID:    o.TraderID,
		Side:        dto.Side(o.Side),
		Type:        dto.OrderType(o.Type),
		TimeInForce: string(o.TimeInForce),
		Quantity:    o.Quantity.String(),
		Remaining:   o.Remaining.String(),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	}
	if o.Price != nil {
		out.Price = o.Price.String()
	}
	return out
}

func convertTrade(t domain.Trade) dto.Trade {
	return dto.Trade{
		ID:          t.ID,
		MarketID:    t.MarketID,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       t.Price.String(),
		Quantity:    t.Quantity.String(),
		ExecutedAt:  t.ExecutedAt,
	}
}

func convertTrades(trades []domain.Trade) []dto.Trade {
	res := make([]dto.Trade, 0, len(trades))
	for _, t := range trades {
		res = append(res, convertTrade(t))
	}
	return res
}
