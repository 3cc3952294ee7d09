//go:build postgres_integration

package store

import (
	"context"
	"os"
	"testing"
)

func TestPostgresLifecycle(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	ctx := context.Background()

	id, err := p.CreateInstance(ctx, testInstance())
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	inst, err := p.GetInstance(ctx, id)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if inst.Name != "unit" {
		t.Fatalf("instance name = %q", inst.Name)
	}

	j, err := p.CreateJob(ctx, id)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := p.SetJobRunning(ctx, j.ID); err != nil {
		t.Fatalf("SetJobRunning: %v", err)
	}
	if err := p.SetJobDone(ctx, j.ID); err != nil {
		t.Fatalf("SetJobDone: %v", err)
	}
	got, err := p.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != JobDone {
		t.Fatalf("job status = %s, want %s", got.Status, JobDone)
	}
}
