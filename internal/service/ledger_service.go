package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"edupair/internal/model"
	"edupair/internal/repository"

	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Ledger"

// LedgerService exposes a user's credit history
type LedgerService interface {
	History(ctx context.Context, username string, filters model.LedgerFilters) ([]model.LedgerEntry, error)
	ExportXLSX(ctx context.Context, username string, filters model.LedgerFilters) (*bytes.Buffer, error)
}

type ledgerService struct {
	store repository.Store
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(store repository.Store) LedgerService {
	return &ledgerService{store: store}
}

func (s *ledgerService) History(ctx context.Context, username string, filters model.LedgerFilters) ([]model.LedgerEntry, error) {
	// A bare date as end bound means the whole day
	if filters.EndDate != nil && filters.EndDate.Hour() == 0 && filters.EndDate.Minute() == 0 && filters.EndDate.Second() == 0 {
		endOfDay := time.Date(filters.EndDate.Year(), filters.EndDate.Month(), filters.EndDate.Day(), 23, 59, 59, 999999999, filters.EndDate.Location())
		filters.EndDate = &endOfDay
	}

	entries, err := s.store.Ledger().FindByUser(ctx, username, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	return entries, nil
}

// ExportXLSX renders the filtered history as a single-sheet workbook
func (s *ledgerService) ExportXLSX(ctx context.Context, username string, filters model.LedgerFilters) (*bytes.Buffer, error) {
	entries, err := s.History(ctx, username, filters)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{"ID", "Kind", "Amount", "SessionID", "CreatedAt"}
	if err := f.SetSheetRow(ledgerSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range entries {
		var sessionID string
		if e.SessionID != nil {
			sessionID = *e.SessionID
		}
		row := []any{e.ID, e.Kind, e.Amount, sessionID, e.CreatedAt.UTC().Format(time.RFC3339)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buffer := &bytes.Buffer{}
	if err := f.Write(buffer); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buffer, nil
}
