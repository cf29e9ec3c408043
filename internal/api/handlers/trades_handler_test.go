package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"goldbridge/internal/models"
)

// ============ TradesHandler Tests ============

func TestTradesHandler_GetTrades(t *testing.T) {
	t.Run("returns trades for requested date", func(t *testing.T) {
		mockReader := &MockTradeReader{byDay: []models.TradeRecord{
			{TradeID: "1_1", Symbol: "XAUUSD"},
			{TradeID: "2_2", Symbol: "XAUUSD"},
		}}
		handler := NewTradesHandler(mockReader)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades?date=2026-08-06", nil)
		w := httptest.NewRecorder()

		handler.GetTrades(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var trades []models.TradeRecord
		if err := json.NewDecoder(w.Body).Decode(&trades); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(trades) != 2 {
			t.Errorf("expected 2 trades, got %d", len(trades))
		}
		if mockReader.day.Year() != 2026 || mockReader.day.Month() != 8 || mockReader.day.Day() != 6 {
			t.Errorf("requested day = %v", mockReader.day)
		}
	})

	t.Run("returns empty array instead of null", func(t *testing.T) {
		mockReader := &MockTradeReader{}
		handler := NewTradesHandler(mockReader)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
		w := httptest.NewRecorder()

		handler.GetTrades(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if body := w.Body.String(); body != "[]\n" {
			t.Errorf("body = %q, want empty array", body)
		}
	})

	t.Run("returns 400 for malformed date", func(t *testing.T) {
		handler := NewTradesHandler(&MockTradeReader{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades?date=06.08.2026", nil)
		w := httptest.NewRecorder()

		handler.GetTrades(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("returns 500 on journal error", func(t *testing.T) {
		handler := NewTradesHandler(&MockTradeReader{err: ErrMockJournal})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
		w := httptest.NewRecorder()

		handler.GetTrades(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestTradesHandler_GetRecentTrades(t *testing.T) {
	t.Run("uses default limit", func(t *testing.T) {
		mockReader := &MockTradeReader{recent: []models.TradeRecord{{TradeID: "3_3"}}}
		handler := NewTradesHandler(mockReader)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/recent", nil)
		w := httptest.NewRecorder()

		handler.GetRecentTrades(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if mockReader.limit != 20 {
			t.Errorf("limit = %d, want 20", mockReader.limit)
		}
	})

	t.Run("caps limit at 100", func(t *testing.T) {
		mockReader := &MockTradeReader{}
		handler := NewTradesHandler(mockReader)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/recent?limit=500", nil)
		w := httptest.NewRecorder()

		handler.GetRecentTrades(w, req)

		if mockReader.limit != 100 {
			t.Errorf("limit = %d, want capped 100", mockReader.limit)
		}
	})

	t.Run("ignores invalid limit", func(t *testing.T) {
		mockReader := &MockTradeReader{}
		handler := NewTradesHandler(mockReader)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/recent?limit=abc", nil)
		w := httptest.NewRecorder()

		handler.GetRecentTrades(w, req)

		if mockReader.limit != 20 {
			t.Errorf("limit = %d, want default 20", mockReader.limit)
		}
	})

	t.Run("returns 500 without journal", func(t *testing.T) {
		handler := NewTradesHandler(nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/recent", nil)
		w := httptest.NewRecorder()

		handler.GetRecentTrades(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}
