package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/me/coresim/internal/report"
	"github.com/me/coresim/pkg/model"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Policy    string `json:"policy"`
	NumCPU    int    `json:"num_cpu"`
	Ticks     uint64 `json:"ticks"`
	Batcher   string `json:"batcher"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	batcher := "idle"
	if s.scheduler.Batcher().Running() {
		batcher = "running"
	}
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Policy:    s.scheduler.Config().Scheduler.String(),
		NumCPU:    s.scheduler.Config().NumCPU,
		Ticks:     s.scheduler.Runtime().Now(),
		Batcher:   batcher,
	})
}

type processView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Core      int    `json:"core"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	ErrorFlag bool   `json:"error_flag"`
	CreatedAt string `json:"created_at"`
	Age       string `json:"age"`
}

func viewOf(in model.Info) processView {
	return processView{
		ID:        in.ID,
		Name:      in.Name,
		Status:    in.Status.String(),
		Core:      in.Core,
		Completed: in.IP,
		Total:     in.Total,
		ErrorFlag: in.ErrorFlag,
		CreatedAt: in.Stamp,
		Age:       humanize.Time(in.CreatedAt),
	}
}

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	infos := report.Infos(s.scheduler.Registry().Snapshot())
	views := make([]processView, 0, len(infos))
	for _, in := range infos {
		views = append(views, viewOf(in))
	}
	respondOK(w, reqID, views)
}

type processDetail struct {
	processView
	Memory   map[string]uint16 `json:"memory"`
	LogLines int               `json:"log_lines"`
	Fault    string            `json:"fault,omitempty"`
}

func (s *Server) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	name := chi.URLParam(r, "name")

	p, ok := s.scheduler.Registry().Lookup(name)
	if !ok {
		respondError(w, reqID, http.StatusNotFound, "NOT_FOUND", "process '"+name+"' not found")
		return
	}
	respondOK(w, reqID, processDetail{
		processView: viewOf(p.Info()),
		Memory:      p.MemorySnapshot(),
		LogLines:    p.LogLines(),
		Fault:       p.FaultMessage(),
	})
}

type statsResponse struct {
	Ticks          uint64  `json:"ticks"`
	CoresUsed      int     `json:"cores_used"`
	CoresAvailable int     `json:"cores_available"`
	CoresTotal     int     `json:"cores_total"`
	Utilization    float64 `json:"utilization_pct"`
	Processes      int     `json:"processes"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	infos := report.Infos(s.scheduler.Registry().Snapshot())
	total := s.scheduler.Config().NumCPU
	u := report.Snapshot(infos, total)

	respondOK(w, reqID, statsResponse{
		Ticks:          s.scheduler.Runtime().Now(),
		CoresUsed:      u.CoresUsed,
		CoresAvailable: u.CoresAvailable,
		CoresTotal:     total,
		Utilization:    u.Percent,
		Processes:      len(infos),
	})
}
