package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hanko-field/promoclock/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "trace-1"})
	rr := httptest.NewRecorder()

	WriteError(ctx, rr, NewError("invalid_window", "start\nmust precede end", http.StatusBadRequest).
		WithDetails(map[string]any{"field": "window", "status": 999}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "invalid_window" {
		t.Fatalf("unexpected code %v", body["error"])
	}
	if body["message"] != "start must precede end" {
		t.Fatalf("message not sanitised: %v", body["message"])
	}
	if body["trace_id"] != "trace-1" {
		t.Fatalf("expected trace id, got %v", body["trace_id"])
	}
	if body["field"] != "window" {
		t.Fatalf("expected details merged, got %v", body)
	}
	if body["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("details must not override status, got %v", body["status"])
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		End json.Number `json:"end"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"end": 1735689600000}`))
	if err := DecodeJSON(req, &dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if dst.End.String() != "1735689600000" {
		t.Fatalf("unexpected value %s", dst.End)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bogus": 1}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatalf("expected unknown field error")
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatalf("expected empty body error")
	}
}
