package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{BadRequest("x"), http.StatusBadRequest},
		{ValidationWrap(stderrors.New("bad row"), "x"), http.StatusBadRequest},
		{TooLarge("x"), http.StatusRequestEntityTooLarge},
		{Unsupported("x"), http.StatusUnsupportedMediaType},
		{NoDataset(), http.StatusNotFound},
		{RateLimit("x"), http.StatusTooManyRequests},
		{Timeout(stderrors.New("deadline"), "x"), http.StatusServiceUnavailable},
		{Internal("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if tt.err.StatusCode != tt.want {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("handler: %w", InternalWrap(cause, "export failed"))

	if !stderrors.Is(err, cause) {
		t.Error("cause lost through wrapping")
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) || appErr.Code != CodeInternal {
		t.Errorf("As() = %v", appErr)
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("app error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, logger, fmt.Errorf("wrapped: %w", NoDataset()), "req-1")

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d", w.Code)
		}
		var resp struct {
			Success bool `json:"success"`
			Error   struct {
				Code      string `json:"code"`
				RequestID string `json:"request_id"`
			} `json:"error"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Success || resp.Error.Code != string(CodeNoDataset) || resp.Error.RequestID != "req-1" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, logger, stderrors.New("boom"), "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, map[string]int{"rows": 3}, map[string]string{"Cache-Control": "no-store"})

	if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("headers = %v", w.Header())
	}
	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Data["rows"] != 3 {
		t.Errorf("response = %+v", resp)
	}
}
