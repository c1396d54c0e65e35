// Package api exposes the engine's operations as a JSON HTTP service.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/alexms1504/trade-assistant/engine"
	"github.com/alexms1504/trade-assistant/market"
	"github.com/alexms1504/trade-assistant/orders"
	"github.com/alexms1504/trade-assistant/pkg/response"
	"github.com/alexms1504/trade-assistant/risk"
)

// Server wraps the engine behind a gin router.
type Server struct {
	engine *engine.Engine
	router *gin.Engine
	addr   string
	log    zerolog.Logger
}

func NewServer(e *engine.Engine, addr string, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(log))

	s := &Server{engine: e, router: router, addr: addr, log: log}
	s.setupRoutes()
	return s
}

// Router returns the underlying router, for tests and embedding.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/size", s.sizeHandler())
		v1.POST("/validate", s.validateHandler())
		v1.POST("/targets", s.targetsHandler())
		v1.POST("/rmultiple", s.rMultipleHandler())

		v1.POST("/orders/bracket", s.submitBracketHandler())
		v1.POST("/orders/scaled", s.submitScaledHandler())
		v1.GET("/orders", s.activeOrdersHandler())
		v1.GET("/orders/history", s.historyHandler())
		v1.DELETE("/orders/:id", s.cancelHandler())

		v1.GET("/check", s.checkHandler())
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type sizeRequest struct {
	Entry       float64 `json:"entry"`
	Stop        float64 `json:"stop"`
	RiskPercent float64 `json:"risk_percent"`
	OrderType   string  `json:"order_type"`
	LimitPrice  float64 `json:"limit_price"`
	Account     string  `json:"account"`
}

func (s *Server) sizeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sizeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		res, err := s.engine.CalculatePositionSize(risk.SizeInput{
			Entry:       req.Entry,
			Stop:        req.Stop,
			RiskPercent: req.RiskPercent,
			OrderType:   parseOrderType(req.OrderType),
			LimitPrice:  req.LimitPrice,
			Account:     req.Account,
		})
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		response.Success(c, res)
	}
}

type validateRequest struct {
	Symbol     string  `json:"symbol"`
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop"`
	TakeProfit float64 `json:"take_profit"`
	Shares     int     `json:"shares"`
	Direction  string  `json:"direction"`
	OrderType  string  `json:"order_type"`
	LimitPrice float64 `json:"limit_price"`
	Account    string  `json:"account"`
}

type validateReply struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) validateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		d := s.engine.ValidateTrade(risk.TradeCheck{
			Symbol:     req.Symbol,
			Entry:      req.Entry,
			Stop:       req.Stop,
			TakeProfit: req.TakeProfit,
			Shares:     req.Shares,
			Direction:  parseDirection(req.Direction),
			OrderType:  parseOrderType(req.OrderType),
			LimitPrice: req.LimitPrice,
			Account:    req.Account,
		})
		// A failed validation is still a successful check: the verdict is
		// the payload, not an error.
		response.Success(c, validateReply{OK: d.OK(), Errors: d.Errors, Warnings: d.Warnings})
	}
}

type targetsRequest struct {
	Entry      float64   `json:"entry"`
	Stop       float64   `json:"stop"`
	RMultiples []float64 `json:"r_multiples"`
	OrderType  string    `json:"order_type"`
	LimitPrice float64   `json:"limit_price"`
}

func (s *Server) targetsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req targetsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if req.Entry <= 0 || req.Stop <= 0 {
			response.BadRequest(c, "entry and stop prices must be positive")
			return
		}

		targets := s.engine.SuggestTargets(req.Entry, req.Stop, req.RMultiples,
			parseOrderType(req.OrderType), req.LimitPrice)
		response.Success(c, gin.H{"targets": targets})
	}
}

type rMultipleRequest struct {
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop"`
	Target     float64 `json:"target"`
	OrderType  string  `json:"order_type"`
	LimitPrice float64 `json:"limit_price"`
}

func (s *Server) rMultipleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rMultipleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		r := s.engine.CalculateRMultiple(req.Entry, req.Stop, req.Target,
			parseOrderType(req.OrderType), req.LimitPrice)
		response.Success(c, gin.H{"r_multiple": r})
	}
}

type bracketRequest struct {
	Symbol     string  `json:"symbol"`
	Quantity   int     `json:"quantity"`
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop"`
	TakeProfit float64 `json:"take_profit"`
	Direction  string  `json:"direction"`
	OrderType  string  `json:"order_type"`
	LimitPrice float64 `json:"limit_price"`
	Account    string  `json:"account"`
}

func (s *Server) submitBracketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bracketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		res, err := s.engine.SubmitBracketOrder(c.Request.Context(), orders.BracketRequest{
			Symbol:     req.Symbol,
			Quantity:   req.Quantity,
			Entry:      req.Entry,
			Stop:       req.Stop,
			TakeProfit: req.TakeProfit,
			Direction:  parseDirection(req.Direction),
			OrderType:  parseOrderType(req.OrderType),
			LimitPrice: req.LimitPrice,
			Account:    req.Account,
		})
		response.Handle(c, res, err)
	}
}

type scaledTarget struct {
	Price     float64 `json:"price"`
	Percent   float64 `json:"percent"`
	RMultiple float64 `json:"r_multiple"`
}

type scaledRequest struct {
	Symbol     string         `json:"symbol"`
	Quantity   int            `json:"quantity"`
	Entry      float64        `json:"entry"`
	Stop       float64        `json:"stop"`
	Targets    []scaledTarget `json:"targets"`
	Direction  string         `json:"direction"`
	OrderType  string         `json:"order_type"`
	LimitPrice float64        `json:"limit_price"`
	Account    string         `json:"account"`
}

func (s *Server) submitScaledHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scaledRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		targets := make([]risk.TargetAllocation, 0, len(req.Targets))
		for _, t := range req.Targets {
			targets = append(targets, risk.TargetAllocation{
				Price:     t.Price,
				Percent:   t.Percent,
				RMultiple: t.RMultiple,
			})
		}

		res, err := s.engine.SubmitMultipleTargetOrder(c.Request.Context(), orders.ScaledRequest{
			Symbol:     req.Symbol,
			Quantity:   req.Quantity,
			Entry:      req.Entry,
			Stop:       req.Stop,
			Targets:    targets,
			Direction:  parseDirection(req.Direction),
			OrderType:  parseOrderType(req.OrderType),
			LimitPrice: req.LimitPrice,
			Account:    req.Account,
		})
		response.Handle(c, res, err)
	}
}

func (s *Server) activeOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, gin.H{"orders": s.engine.ActiveOrders(c.Request.Context())})
	}
}

func (s *Server) historyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, gin.H{"history": s.engine.OrderHistory()})
	}
}

func (s *Server) cancelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "order id must be an integer")
			return
		}

		if err := s.engine.CancelOrder(c.Request.Context(), orderID); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"order_id": orderID, "cancel_requested": true})
	}
}

func (s *Server) checkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, s.engine.CheckAPIConfiguration(c.Request.Context()))
	}
}

func parseDirection(s string) market.Direction {
	return market.Direction(strings.ToUpper(strings.TrimSpace(s)))
}

func parseOrderType(s string) market.OrderType {
	if s == "" {
		return market.Limit
	}
	return market.OrderType(strings.ToUpper(strings.TrimSpace(s)))
}
