// Package httpserver exposes the parking-meter ledger over HTTP.
package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhmtalitas/parkmeter/internal/errs"
	"github.com/mhmtalitas/parkmeter/internal/model"
	"github.com/mhmtalitas/parkmeter/internal/pricing"
	"github.com/mhmtalitas/parkmeter/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	meter    service.MeterService
	accounts service.AccountService
}

// NewServer constructs an HTTP server with injected services.
func NewServer(meter service.MeterService, accounts service.AccountService) *Server {
	return &Server{meter: meter, accounts: accounts}
}

// writeErr maps service errors onto HTTP statuses. Invariant messages
// pass through verbatim; everything unexpected collapses to 500.
func writeErr(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrNotInitialized):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrOperatorInactive),
		errors.Is(err, errs.ErrSessionActive),
		errors.Is(err, errs.ErrAlreadyPaid),
		errors.Is(err, errs.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrInsufficientPayment):
		status = http.StatusPaymentRequired
	case errors.Is(err, errs.ErrRateLimited):
		status = http.StatusTooManyRequests
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// --- Accounts ---

type registerAccountRequest struct {
	Address string `json:"address" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

// RegisterAccount creates a credential account for a principal.
func (s *Server) RegisterAccount(c *gin.Context) {
	var req registerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.accounts.Register(c.Request.Context(), model.Principal(req.Address), req.Secret); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type loginRequest struct {
	Address string `json:"address" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

// Login authenticates a principal and returns a bearer token.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tok, err := s.accounts.LoginWithIP(c.Request.Context(), model.Principal(req.Address), req.Secret, c.ClientIP())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": tok.AccessToken,
		"expires_at":   tok.ExpiresAt,
	})
}

// --- Meter ---

type initializeRequest struct {
	Admin string `json:"admin" binding:"required"`
}

// Initialize sets the ledger admin.
func (s *Server) Initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.meter.Initialize(c.Request.Context(), model.Principal(req.Admin)); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type registerOperatorRequest struct {
	Address    string `json:"address" binding:"required"`
	Name       string `json:"name" binding:"required"`
	HourlyRate int64  `json:"hourly_rate" binding:"required"`
}

// RegisterOperator writes an operator record under admin authorization.
func (s *Server) RegisterOperator(c *gin.Context) {
	var req registerOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.meter.RegisterOperator(c.Request.Context(),
		model.Principal(req.Address), req.Name, model.Stroops(req.HourlyRate))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type setOperatorStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetOperatorStatus toggles an operator's active flag.
func (s *Server) SetOperatorStatus(c *gin.Context) {
	var req setOperatorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr := model.Principal(c.Param("addr"))
	if err := s.meter.SetOperatorStatus(c.Request.Context(), addr, *req.IsActive); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateAdminRequest struct {
	NewAdmin string `json:"new_admin" binding:"required"`
}

// UpdateAdmin rotates the ledger admin.
func (s *Server) UpdateAdmin(c *gin.Context) {
	var req updateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.meter.UpdateAdmin(c.Request.Context(), model.Principal(req.NewAdmin)); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createEntryRequest struct {
	Operator     string `json:"operator" binding:"required"`
	LicensePlate string `json:"license_plate" binding:"required"`
}

// CreateEntry opens a parking session.
func (s *Server) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plate, err := s.meter.CreateEntry(c.Request.Context(), model.Principal(req.Operator), req.LicensePlate)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"license_plate": plate})
}

// GetEntry returns the latest entry for a plate.
func (s *Server) GetEntry(c *gin.Context) {
	entry, err := s.meter.GetEntry(c.Request.Context(), c.Param("plate"))
	if err != nil {
		writeErr(c, err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// CalculateFee quotes duration and fee for a plate against the live clock.
func (s *Server) CalculateFee(c *gin.Context) {
	quote, err := s.meter.CalculateFee(c.Request.Context(), c.Param("plate"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"duration_seconds": quote.DurationSeconds,
		"fee":              quote.Fee,
		"fee_xlm":          pricing.XLMString(quote.Fee),
	})
}

type paymentRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// CompletePayment settles an open session.
func (s *Server) CompletePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.meter.CompletePayment(c.Request.Context(), c.Param("plate"), model.Stroops(req.Amount)); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetOperator returns an operator record.
func (s *Server) GetOperator(c *gin.Context) {
	op, err := s.meter.GetOperator(c.Request.Context(), model.Principal(c.Param("addr")))
	if err != nil {
		writeErr(c, err)
		return
	}
	if op == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, op)
}

// GetTotalEntries returns the lifetime entry count.
func (s *Server) GetTotalEntries(c *gin.Context) {
	count, err := s.meter.GetTotalEntries(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_entries": count})
}
