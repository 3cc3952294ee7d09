package store

import (
	"context"
	"errors"
	"testing"

	"mpvrpcc/internal/model"
)

func testInstance() *model.Instance {
	inst := model.NewInstance("unit")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(1, 0, map[int]float64{0: 100}, "")
	inst.AddStation(2, 0, map[int]float64{0: 40}, "")
	inst.AddTruck(50, 1, 0)
	return inst
}

func TestMemoryInstanceLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.CreateInstance(ctx, testInstance())
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	got, err := m.GetInstance(ctx, id)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if got.Name != "unit" || len(got.Trucks) != 1 {
		t.Fatalf("unexpected instance: %+v", got)
	}
	if _, err := m.GetInstance(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	items, next, err := m.ListInstances(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(items) != 1 || next != "" {
		t.Fatalf("want 1 item no cursor, got %d %q", len(items), next)
	}
	if items[0].NumProducts != 1 || items[0].NumStations != 1 {
		t.Fatalf("bad summary: %+v", items[0])
	}
}

func TestMemoryListInstancesCursor(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.CreateInstance(ctx, testInstance()); err != nil {
			t.Fatalf("CreateInstance: %v", err)
		}
	}
	first, next, err := m.ListInstances(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(first) != 2 || next == "" {
		t.Fatalf("want 2 items and a cursor, got %d %q", len(first), next)
	}
	rest, _, err := m.ListInstances(ctx, next, 10)
	if err != nil {
		t.Fatalf("ListInstances page 2: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("want 3 remaining, got %d", len(rest))
	}
	if rest[0].ID == first[1].ID {
		t.Fatalf("cursor page repeats item %s", rest[0].ID)
	}
}

func TestMemoryJobLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.CreateJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("job for missing instance: want ErrNotFound, got %v", err)
	}

	instID, err := m.CreateInstance(ctx, testInstance())
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	j, err := m.CreateJob(ctx, instID)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if j.Status != JobPending {
		t.Fatalf("new job status = %s, want %s", j.Status, JobPending)
	}

	if err := m.SetJobRunning(ctx, j.ID); err != nil {
		t.Fatalf("SetJobRunning: %v", err)
	}
	if err := m.SetJobFailed(ctx, j.ID, "boom"); err != nil {
		t.Fatalf("SetJobFailed: %v", err)
	}
	got, err := m.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != JobFailed || got.Error != "boom" {
		t.Fatalf("job after fail: %+v", got)
	}
}

func TestMemorySolutionRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	instID, _ := m.CreateInstance(ctx, testInstance())
	j, _ := m.CreateJob(ctx, instID)

	sol := model.Solution{InstanceName: "unit", Routes: []model.CompleteRoute{{TruckID: 1, GarageID: 1, TotalCost: 12.5}}}
	met := model.Metrics{NumVehiclesUsed: 1, TotalCost: 12.5}
	if err := m.SaveSolution(ctx, j.ID, sol, met); err != nil {
		t.Fatalf("SaveSolution: %v", err)
	}
	gotSol, gotMet, err := m.GetSolution(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetSolution: %v", err)
	}
	if gotSol.Routes[0].TotalCost != 12.5 || gotMet.NumVehiclesUsed != 1 {
		t.Fatalf("round trip mismatch: %+v %+v", gotSol, gotMet)
	}

	if _, _, err := m.GetSolution(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := m.SaveSolution(ctx, "missing", sol, met); !errors.Is(err, ErrNotFound) {
		t.Fatalf("save on missing job: want ErrNotFound, got %v", err)
	}
}
