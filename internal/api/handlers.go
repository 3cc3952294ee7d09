package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"mpvrpcc/internal/codec"
	"mpvrpcc/internal/metrics"
	"mpvrpcc/internal/model"
	"mpvrpcc/internal/solver"
	"mpvrpcc/internal/store"
)

// InstancesHandler serves POST /v1/instances and GET /v1/instances.
// Instances are accepted as JSON by default; a text/plain body is parsed as
// the tabular format.
func (s *Server) InstancesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createInstance(w, r)
	case http.MethodGet:
		s.listInstances(w, r)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
	}
}

func (s *Server) createInstance(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "read body", err.Error(), r.URL.Path)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "instance"
	}

	var inst *model.Instance
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		inst, err = codec.DecodeInstanceDAT(strings.NewReader(string(body)), name)
	} else {
		inst, err = codec.DecodeInstanceJSON(body, name)
	}
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "malformed instance", err.Error(), r.URL.Path)
		return
	}
	if ok, problems := inst.Validate(); !ok {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid instance", strings.Join(problems, "; "), r.URL.Path)
		return
	}

	id, err := s.Store.CreateInstance(r.Context(), inst)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store instance", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "name": inst.Name})
}

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	limit := 0
	fmt.Sscanf(r.URL.Query().Get("limit"), "%d", &limit)
	items, next, err := s.Store.ListInstances(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "list instances", err.Error(), r.URL.Path)
		return
	}
	resp := map[string]any{"items": items}
	if next != "" {
		resp["nextCursor"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

// InstanceByIDHandler serves GET /v1/instances/{id}. With ?format=dat the
// instance is rendered in the tabular format.
func (s *Server) InstanceByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/instances/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
		return
	}
	inst, err := s.Store.GetInstance(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "instance not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "load instance", err.Error(), r.URL.Path)
		return
	}
	if r.URL.Query().Get("format") == "dat" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = codec.EncodeInstanceDAT(w, inst)
		return
	}
	doc, err := codec.EncodeInstanceJSON(inst)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "encode instance", err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

type solveRequest struct {
	InstanceID   string `json:"instanceId"`
	Construction string `json:"construction,omitempty"`
	Improvement  string `json:"improvement,omitempty"`
	TimeBudgetMs int    `json:"timeBudgetMs,omitempty"`
	Seed         int64  `json:"seed,omitempty"`
	Workers      int    `json:"workers,omitempty"`
}

// SolveHandler serves POST /v1/solve. It creates a job and runs the solve in
// the background; clients poll the job or subscribe to its event stream.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	if !s.Limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "rate limited", "solve submission rate exceeded", r.URL.Path)
		return
	}
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "malformed request", err.Error(), r.URL.Path)
		return
	}
	cfg, err := s.searchConfig(req)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid search config", err.Error(), r.URL.Path)
		return
	}

	inst, err := s.Store.GetInstance(r.Context(), req.InstanceID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "instance not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "load instance", err.Error(), r.URL.Path)
		return
	}

	job, err := s.Store.CreateJob(r.Context(), req.InstanceID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "create job", err.Error(), r.URL.Path)
		return
	}

	go s.runJob(job, inst, cfg)
	writeJSON(w, http.StatusAccepted, job)
}

// searchConfig builds the effective per-request config from the server
// defaults plus request overrides.
func (s *Server) searchConfig(req solveRequest) (solver.SearchConfig, error) {
	cfg := s.Search
	if req.Construction != "" {
		cfg.Construction = solver.ConstructionStrategy(req.Construction)
	}
	if req.Improvement != "" {
		cfg.Improvement = solver.ImprovementStrategy(req.Improvement)
	}
	if req.TimeBudgetMs < 0 {
		return solver.SearchConfig{}, fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if req.TimeBudgetMs > 0 {
		cfg.TimeBudget = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	if req.Workers != 0 {
		cfg.Workers = req.Workers
	}
	return cfg, cfg.Validate()
}

func (s *Server) runJob(job store.Job, inst *model.Instance, cfg solver.SearchConfig) {
	ctx := context.Background()
	if err := s.Store.SetJobRunning(ctx, job.ID); err != nil {
		log.Printf("job %s: mark running: %v", job.ID, err)
	}
	s.Broker.Publish(job.ID, SSEEvent{Type: "job.running", Data: map[string]any{"jobId": job.ID}})

	cfg.Progress = func(product, routes int) {
		s.Broker.Publish(job.ID, SSEEvent{Type: "job.progress", Data: map[string]any{
			"jobId": job.ID, "product": product, "routes": routes,
		}})
	}

	start := time.Now()
	sol, met, err := solver.Solve(ctx, inst, s.Engine, cfg)
	metrics.SolveDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := solveOutcome(err)
		metrics.SolveRequests.WithLabelValues(outcome).Inc()
		if ferr := s.Store.SetJobFailed(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("job %s: mark failed: %v", job.ID, ferr)
		}
		s.Broker.Publish(job.ID, SSEEvent{Type: "job.failed", Data: map[string]any{
			"jobId": job.ID, "reason": err.Error(), "outcome": outcome,
		}})
		s.Notifier.Notify("job.failed", map[string]any{"jobId": job.ID, "reason": err.Error()})
		return
	}

	if err := s.Store.SaveSolution(ctx, job.ID, sol, met); err != nil {
		log.Printf("job %s: save solution: %v", job.ID, err)
		_ = s.Store.SetJobFailed(ctx, job.ID, "persist solution: "+err.Error())
		return
	}
	if err := s.Store.SetJobDone(ctx, job.ID); err != nil {
		log.Printf("job %s: mark done: %v", job.ID, err)
	}
	metrics.SolveRequests.WithLabelValues("done").Inc()
	metrics.SolutionCost.Observe(met.TotalCost)
	s.Broker.Publish(job.ID, SSEEvent{Type: "job.done", Data: map[string]any{
		"jobId": job.ID, "totalCost": met.TotalCost, "vehiclesUsed": met.NumVehiclesUsed,
	}})
	s.Notifier.Notify("job.done", map[string]any{"jobId": job.ID, "metrics": met})
}

func solveOutcome(err error) string {
	var verr *solver.ValidationError
	var serr *solver.InsufficientSupplyError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &serr), errors.Is(err, solver.ErrInfeasible):
		return "infeasible"
	default:
		return "error"
	}
}

// JobByIDHandler serves GET /v1/jobs/{id} plus the /solution and
// /events/stream subresources.
func (s *Server) JobByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
		return
	}
	switch sub {
	case "":
		job, err := s.Store.GetJob(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "job not found", "", r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "load job", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, job)
	case "solution":
		s.jobSolution(w, r, id)
	case "events/stream":
		s.jobEventsSSE(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
	}
}

func (s *Server) jobSolution(w http.ResponseWriter, r *http.Request, jobID string) {
	sol, met, err := s.Store.GetSolution(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "no solution for job", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "load solution", err.Error(), r.URL.Path)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		job, err := s.Store.GetJob(r.Context(), jobID)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "load job", err.Error(), r.URL.Path)
			return
		}
		inst, err := s.Store.GetInstance(r.Context(), job.InstanceID)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "load instance", err.Error(), r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = codec.WriteSolution(w, inst, &sol, met)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"solution": sol, "metrics": met})
}

func (s *Server) jobEventsSSE(w http.ResponseWriter, r *http.Request, jobID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(jobID)
	defer s.Broker.Unsubscribe(jobID, ch)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
			if evt.Type == "job.done" || evt.Type == "job.failed" {
				return
			}
		}
	}
}

type validateRequest struct {
	InstanceID string         `json:"instanceId"`
	Solution   model.Solution `json:"solution"`
}

// ValidateHandler serves POST /v1/validate: it checks a caller-supplied
// solution against a stored instance and reports every violation found.
func (s *Server) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "malformed request", err.Error(), r.URL.Path)
		return
	}
	inst, err := s.Store.GetInstance(r.Context(), req.InstanceID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "instance not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "load instance", err.Error(), r.URL.Path)
		return
	}
	feasible, violations := solver.Validate(inst, &req.Solution)
	if violations == nil {
		violations = []solver.Violation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"feasible": feasible, "violations": violations})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
