package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"mpvrpcc/internal/model"
)

type memSolution struct {
	sol model.Solution
	m   model.Metrics
}

// Memory is a simple in-memory store used when no DATABASE_URL is set.
// Instances are treated as immutable once created, so reads hand out the
// stored pointer.
type Memory struct {
	mu        sync.Mutex
	instances map[string]*model.Instance
	summaries []InstanceSummary // insertion order, drives listing
	jobs      map[string]Job
	solutions map[string]memSolution // keyed by job id
}

func NewMemory() *Memory {
	return &Memory{
		instances: map[string]*model.Instance{},
		jobs:      map[string]Job{},
		solutions: map[string]memSolution{},
	}
}

func (m *Memory) CreateInstance(ctx context.Context, inst *model.Instance) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.instances[id] = inst
	m.summaries = append(m.summaries, InstanceSummary{
		ID:          id,
		Name:        inst.Name,
		NumProducts: inst.NumProducts,
		NumTrucks:   len(inst.Trucks),
		NumStations: len(inst.Stations),
		CreatedAt:   time.Now().UTC(),
	})
	return id, nil
}

func (m *Memory) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inst, nil
}

func (m *Memory) ListInstances(ctx context.Context, cursor string, limit int) ([]InstanceSummary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		for i, s := range m.summaries {
			if s.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(m.summaries) {
		end = len(m.summaries)
	}
	items := append([]InstanceSummary(nil), m.summaries[start:end]...)
	next := ""
	if end < len(m.summaries) {
		next = m.summaries[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) CreateJob(ctx context.Context, instanceID string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[instanceID]; !ok {
		return Job{}, ErrNotFound
	}
	now := time.Now().UTC()
	j := Job{ID: uuid.New().String(), InstanceID: instanceID, Status: JobPending, CreatedAt: now, UpdatedAt: now}
	m.jobs[j.ID] = j
	return j, nil
}

func (m *Memory) GetJob(ctx context.Context, id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return j, nil
}

func (m *Memory) SetJobRunning(ctx context.Context, id string) error {
	return m.setStatus(id, JobRunning, "")
}

func (m *Memory) SetJobDone(ctx context.Context, id string) error {
	return m.setStatus(id, JobDone, "")
}

func (m *Memory) SetJobFailed(ctx context.Context, id string, reason string) error {
	return m.setStatus(id, JobFailed, reason)
}

func (m *Memory) setStatus(id, status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = status
	j.Error = reason
	j.UpdatedAt = time.Now().UTC()
	m.jobs[id] = j
	return nil
}

func (m *Memory) SaveSolution(ctx context.Context, jobID string, sol model.Solution, met model.Metrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[jobID]; !ok {
		return ErrNotFound
	}
	m.solutions[jobID] = memSolution{sol: sol, m: met}
	return nil
}

func (m *Memory) GetSolution(ctx context.Context, jobID string) (model.Solution, model.Metrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.solutions[jobID]
	if !ok {
		return model.Solution{}, model.Metrics{}, ErrNotFound
	}
	return s.sol, s.m, nil
}
