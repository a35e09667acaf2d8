package http

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/ai"
	"github.com/spec-kit/repair-board/internal/api/http/handlers"
	"github.com/spec-kit/repair-board/internal/config"
	"github.com/spec-kit/repair-board/internal/extraction"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *nethttp.Response) errorEnvelope {
	t.Helper()
	defer resp.Body.Close()
	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return envelope
}

func TestRequestTimeoutMapsToGatewayTimeout(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 20*time.Millisecond)
	app.Get("/slow", func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		return c.UserContext().Err()
	})

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/slow", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != nethttp.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", resp.StatusCode)
	}
	if envelope := decodeError(t, resp); envelope.Error.Code != "TIMEOUT" {
		t.Fatalf("code = %q, want TIMEOUT", envelope.Error.Code)
	}
}

func TestExtractionWithoutBackendReturnsServiceUnavailable(t *testing.T) {
	logger := zap.NewNop()
	capability := ai.NewCapability(config.GeminiConfig{}, logger)
	pool := extraction.NewPool(2, logger)
	t.Cleanup(pool.Close)
	orchestrator := extraction.NewOrchestrator(capability, pool, time.Second, logger, nil)

	app := fiber.New()
	RegisterMiddlewares(app, logger, nil, 0)
	handler := handlers.NewExtractionHandler(orchestrator)
	app.Post("/extractions", handler.Extract)

	body := bytes.NewBufferString(`{"imagen":"aGVsbG8="}`)
	req := httptest.NewRequest(nethttp.MethodPost, "/extractions", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != nethttp.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if envelope := decodeError(t, resp); envelope.Error.Code != "CAPABILITY_UNAVAILABLE" {
		t.Fatalf("code = %q, want CAPABILITY_UNAVAILABLE", envelope.Error.Code)
	}
}

func TestExtractionRequiresImage(t *testing.T) {
	logger := zap.NewNop()
	capability := ai.NewCapability(config.GeminiConfig{APIKey: "k", Model: "m"}, logger)
	pool := extraction.NewPool(2, logger)
	t.Cleanup(pool.Close)
	orchestrator := extraction.NewOrchestrator(capability, pool, time.Second, logger, nil)

	app := fiber.New()
	RegisterMiddlewares(app, logger, nil, 0)
	handler := handlers.NewExtractionHandler(orchestrator)
	app.Post("/extractions", handler.Extract)

	req := httptest.NewRequest(nethttp.MethodPost, "/extractions", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	envelope := decodeError(t, resp)
	if envelope.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("code = %q, want VALIDATION_FAILED", envelope.Error.Code)
	}
	if _, ok := envelope.Error.Details["imagen"]; !ok {
		t.Fatalf("details %v missing imagen", envelope.Error.Details)
	}
}
