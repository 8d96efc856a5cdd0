package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/logging"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/offload"
)

func newTestApp(t *testing.T) (*fiber.App, *offload.Simulator) {
	t.Helper()
	sim := offload.NewSimulator()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	logger := logging.NewWithWriter(io.Discard, zerolog.ErrorLevel)
	NewHandler(sim, logger).RegisterRoutes(app)
	return app, sim
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	resp.Body.Close()
	return resp, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var er models.ErrorResponse
	if err := json.Unmarshal(data, &er); err != nil {
		t.Fatalf("failed to decode error response %s: %v", data, err)
	}
	return er.Error.Code
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, data := doJSON(t, app, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var hr models.HealthResponse
	if err := json.Unmarshal(data, &hr); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if hr.Status != "healthy" || hr.Version != Version {
		t.Errorf("unexpected health response: %+v", hr)
	}
}

func TestListNodesEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, data := doJSON(t, app, http.MethodGet, "/api/v1/nodes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var nl models.NodeListResponse
	if err := json.Unmarshal(data, &nl); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if nl.Count != 3 || len(nl.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %+v", nl)
	}
}

func TestRefreshNodesEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/nodes/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var cr models.CommandResponse
	if err := json.Unmarshal(data, &cr); err != nil || !cr.OK {
		t.Errorf("expected ok response, got %s", data)
	}
}

func TestSelectTargetEndpoint(t *testing.T) {
	app, sim := newTestApp(t)

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	target, ok := sim.CurrentTarget()
	if !ok || target.NodeID != "node1" {
		t.Errorf("selection not applied, target=%v", target.NodeID)
	}
}

func TestSelectUnknownTargetEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/target/node99", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if code := errorCode(t, data); code != "NODE_NOT_FOUND" {
		t.Errorf("unexpected error code %s", code)
	}
}

func TestSelectIneligibleTargetEndpoint(t *testing.T) {
	app, sim := newTestApp(t)
	sim.Registry().SetNodeHealth("node1", models.HealthDegraded)

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if code := errorCode(t, data); code != "NODE_NOT_ELIGIBLE" {
		t.Errorf("unexpected error code %s", code)
	}
}

func TestAutoSelectTargetEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/target/auto", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	var node models.TargetNode
	if err := json.Unmarshal(data, &node); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if node.NodeID != "node2" {
		t.Errorf("expected node2 auto-selected, got %s", node.NodeID)
	}
}

func TestGetAndClearTargetEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/target", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 with no target, got %d", resp.StatusCode)
	}

	doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)
	resp, data := doJSON(t, app, http.MethodGet, "/api/v1/target", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var node models.TargetNode
	if err := json.Unmarshal(data, &node); err != nil || node.NodeID != "node1" {
		t.Errorf("unexpected target: %s", data)
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/target", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/target", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after clear, got %d", resp.StatusCode)
	}
}

func TestStartEndpoint(t *testing.T) {
	app, sim := newTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/offload/start",
		models.StartRequest{DataIDs: []string{"shard-a"}})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, data)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if opID, ok := body["operation_id"].(string); !ok || opID == "" {
		t.Error("expected an operation id")
	}
	if sim.Status() != models.StatusTransferring {
		t.Errorf("expected transferring, got %s", sim.Status())
	}
}

func TestStartEndpointWithoutBody(t *testing.T) {
	app, sim := newTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/offload/start", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, data)
	}
	if sim.Status() != models.StatusTransferring {
		t.Errorf("expected transferring, got %s", sim.Status())
	}
}

func TestStartWithoutTargetEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/offload/start",
		models.StartRequest{DataIDs: []string{"shard-a"}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if code := errorCode(t, data); code != "NO_TARGET_SELECTED" {
		t.Errorf("unexpected error code %s", code)
	}
}

func TestStartWhileActiveEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)
	doJSON(t, app, http.MethodPost, "/api/v1/offload/start",
		models.StartRequest{DataIDs: []string{"shard-a"}})

	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/offload/start",
		models.StartRequest{DataIDs: []string{"shard-b"}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if code := errorCode(t, data); code != "OPERATION_IN_PROGRESS" {
		t.Errorf("unexpected error code %s", code)
	}
}

func TestPauseResumeCancelEndpoints(t *testing.T) {
	app, sim := newTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)
	doJSON(t, app, http.MethodPost, "/api/v1/offload/start",
		models.StartRequest{DataIDs: []string{"shard-a"}})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/offload/pause", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause: expected 200, got %d", resp.StatusCode)
	}
	if sim.Status() != models.StatusPaused {
		t.Errorf("expected paused, got %s", sim.Status())
	}

	// Pausing again is illegal
	resp, data := doJSON(t, app, http.MethodPost, "/api/v1/offload/pause", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double pause: expected 409, got %d", resp.StatusCode)
	}
	if code := errorCode(t, data); code != "INVALID_STATE" {
		t.Errorf("unexpected error code %s", code)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/offload/resume", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/offload/cancel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}
	if sim.Status() != models.StatusCancelled {
		t.Errorf("expected cancelled, got %s", sim.Status())
	}

	resp, data = doJSON(t, app, http.MethodPost, "/api/v1/offload/cancel", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double cancel: expected 409, got %d", resp.StatusCode)
	}
	if code := errorCode(t, data); code != "NO_ACTIVE_OPERATION" {
		t.Errorf("unexpected error code %s", code)
	}
}

func TestStatusAndProgressEndpoints(t *testing.T) {
	app, sim := newTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)
	doJSON(t, app, http.MethodPost, "/api/v1/offload/start",
		models.StartRequest{DataIDs: []string{"shard-a"}})
	sim.SimulateProgress(30 * 1024 * 1024)

	resp, data := doJSON(t, app, http.MethodGet, "/api/v1/offload/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var sr models.StatusResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if sr.Status != models.StatusTransferring || !sr.Active || sr.TargetID != "node1" {
		t.Errorf("unexpected status response: %+v", sr)
	}

	resp, data = doJSON(t, app, http.MethodGet, "/api/v1/offload/progress", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var pr struct {
		Progress        models.OffloadProgress `json:"progress"`
		ProgressPercent float64                `json:"progress_percent"`
	}
	if err := json.Unmarshal(data, &pr); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if pr.ProgressPercent != 30.0 {
		t.Errorf("expected 30%%, got %f", pr.ProgressPercent)
	}
}

func TestResultEndpoint(t *testing.T) {
	app, sim := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/offload/result", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 with no result, got %d", resp.StatusCode)
	}

	doJSON(t, app, http.MethodPost, "/api/v1/target/node1", nil)
	doJSON(t, app, http.MethodPost, "/api/v1/offload/start",
		models.StartRequest{DataIDs: []string{"shard-a"}})
	sim.SimulateComplete()

	resp, data := doJSON(t, app, http.MethodGet, "/api/v1/offload/result", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result models.OffloadResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !result.Success || result.TargetNode.NodeID != "node1" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestConfigEndpoints(t *testing.T) {
	app, sim := newTestApp(t)

	resp, data := doJSON(t, app, http.MethodGet, "/api/v1/config", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var cfg config.OffloadConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if cfg.SegmentSize != config.DefaultOffloadConfig().SegmentSize {
		t.Errorf("expected default segment size, got %d", cfg.SegmentSize)
	}

	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/config",
		map[string]interface{}{"max_retries": 9})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if sim.Config().MaxRetries != 9 {
		t.Errorf("config update not applied, got %d", sim.Config().MaxRetries)
	}
	if sim.Config().SegmentSize != cfg.SegmentSize {
		t.Error("omitted fields must keep their values")
	}

	resp, data = doJSON(t, app, http.MethodPut, "/api/v1/config",
		map[string]interface{}{"segment_size": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid config: expected 400, got %d: %s", resp.StatusCode, data)
	}
}
