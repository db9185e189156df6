package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"edupair/internal/model"
	"edupair/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LedgerHandler serves the caller's credit history
type LedgerHandler struct {
	service service.LedgerService
	logger  *slog.Logger
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(s service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{service: s, logger: logger}
}

// parseLedgerFilters reads kind, start_date and end_date (YYYY-MM-DD)
func parseLedgerFilters(c *gin.Context) (model.LedgerFilters, error) {
	var filters model.LedgerFilters
	if kind := c.Query("kind"); kind != "" {
		if !model.IsLedgerKind(kind) {
			return filters, fmt.Errorf("unknown ledger kind %q", kind)
		}
		filters.Kind = &kind
	}
	if startDateParam := c.Query("start_date"); startDateParam != "" {
		parsedDate, err := time.Parse("2006-01-02", startDateParam)
		if err != nil {
			return filters, errors.New("invalid date format for 'start_date', use YYYY-MM-DD")
		}
		filters.StartDate = &parsedDate
	}
	if endDateParam := c.Query("end_date"); endDateParam != "" {
		parsedDate, err := time.Parse("2006-01-02", endDateParam)
		if err != nil {
			return filters, errors.New("invalid date format for 'end_date', use YYYY-MM-DD")
		}
		filters.EndDate = &parsedDate
	}
	return filters, nil
}

func (h *LedgerHandler) GetHistory(c *gin.Context) {
	username, err := getAuthUsername(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	filters, err := parseLedgerFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.service.History(c.Request.Context(), username, filters)
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve ledger")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *LedgerHandler) ExportXLSX(c *gin.Context) {
	username, err := getAuthUsername(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	filters, err := parseLedgerFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	buffer, err := h.service.ExportXLSX(c.Request.Context(), username, filters)
	if err != nil {
		respondError(c, h.logger, err, "Failed to export ledger")
		return
	}

	fileName := fmt.Sprintf("ledger_%s_%s.xlsx", username, time.Now().Format("20060102_150405"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, xlsxContentType, buffer.Bytes())
}

// RegisterLedgerRoutes registers ledger routes behind authMW
func (h *LedgerHandler) RegisterLedgerRoutes(r gin.IRouter, authMW gin.HandlerFunc) {
	ledger := r.Group("/ledger")
	ledger.Use(authMW)
	{
		ledger.GET("", h.GetHistory)
		ledger.GET("/export", h.ExportXLSX)
	}
}
