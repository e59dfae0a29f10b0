package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/me/coresim/internal/config"
	"github.com/me/coresim/internal/gen"
	"github.com/me/coresim/internal/registry"
	"github.com/me/coresim/internal/sched"
	"github.com/me/coresim/pkg/model"
)

func testServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Config{
		NumCPU:    2,
		Scheduler: model.PolicyFCFS,
		Quantum:   1,
		BatchFreq: 1,
		MinIns:    1,
		MaxIns:    3,
		LogDir:    t.TempDir(),
	}
	reg := registry.New(logger)
	s := sched.New(cfg, sched.NewRuntime(), reg, gen.New(rand.NewSource(1)), logger)
	return New(s, logger), reg
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse response for %s: %v (%s)", path, err, rec.Body.String())
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	rec, body := get(t, srv, "/api/v1/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("envelope status = %v", body["status"])
	}
	data := body["data"].(map[string]any)
	if data["policy"] != "fcfs" {
		t.Errorf("policy = %v, want fcfs", data["policy"])
	}
	if data["num_cpu"].(float64) != 2 {
		t.Errorf("num_cpu = %v, want 2", data["num_cpu"])
	}
}

func TestListProcesses(t *testing.T) {
	srv, reg := testServer(t)
	p := model.NewProcess(1, "p1", []model.Instruction{model.Print("x")}, nil)
	if err := reg.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec, body := get(t, srv, "/api/v1/processes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := body["data"].([]any)
	if len(list) != 1 {
		t.Fatalf("processes = %d, want 1", len(list))
	}
	view := list[0].(map[string]any)
	if view["name"] != "p1" || view["status"] != "READY" {
		t.Errorf("view = %v", view)
	}
}

func TestGetProcessDetail(t *testing.T) {
	srv, reg := testServer(t)
	p := model.NewProcess(1, "p1", []model.Instruction{model.Print("x")}, nil)
	p.SetVar("x", 5)
	if err := reg.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec, body := get(t, srv, "/api/v1/processes/p1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].(map[string]any)
	mem := data["memory"].(map[string]any)
	if mem["x"].(float64) != 5 {
		t.Errorf("memory = %v", mem)
	}
}

func TestGetProcessNotFound(t *testing.T) {
	srv, _ := testServer(t)
	rec, body := get(t, srv, "/api/v1/processes/nope")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body["status"] != "error" {
		t.Fatalf("envelope status = %v", body["status"])
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("error code = %v", errObj["code"])
	}
}

func TestStats(t *testing.T) {
	srv, reg := testServer(t)
	p := model.NewProcess(1, "p1", []model.Instruction{model.Print("x")}, nil)
	if err := p.SetStatus(model.StatusRunning); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	p.SetCore(0)
	if err := reg.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec, body := get(t, srv, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].(map[string]any)
	if data["cores_used"].(float64) != 1 {
		t.Errorf("cores_used = %v, want 1", data["cores_used"])
	}
	if data["utilization_pct"].(float64) != 50 {
		t.Errorf("utilization = %v, want 50", data["utilization_pct"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := testServer(t)
	rec, _ := get(t, srv, "/api/v1/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
