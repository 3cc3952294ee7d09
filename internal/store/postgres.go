package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"mpvrpcc/internal/codec"
	"mpvrpcc/internal/model"
)

// Postgres persists instances, jobs and solutions. Instances and solutions
// are stored as JSONB documents; jobs get real columns so status can be
// queried and indexed.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	p := &Postgres{db: db}
	if err := p.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS instances (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			num_products INT NOT NULL,
			num_trucks INT NOT NULL,
			num_stations INT NOT NULL,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			instance_id UUID NOT NULL REFERENCES instances(id),
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs(status)`,
		`CREATE TABLE IF NOT EXISTS solutions (
			job_id UUID PRIMARY KEY REFERENCES jobs(id),
			solution JSONB NOT NULL,
			metrics JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) CreateInstance(ctx context.Context, inst *model.Instance) (string, error) {
	doc, err := codec.EncodeInstanceJSON(inst)
	if err != nil {
		return "", err
	}
	id := uuid.New()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO instances (id, name, num_products, num_trucks, num_stations, doc) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, inst.Name, inst.NumProducts, len(inst.Trucks), len(inst.Stations), doc)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (p *Postgres) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	var name string
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT name, doc FROM instances WHERE id=$1`, id).Scan(&name, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeInstanceJSON(doc, name)
}

func (p *Postgres) ListInstances(ctx context.Context, cursor string, limit int) ([]InstanceSummary, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, name, num_products, num_trucks, num_stations, created_at FROM instances WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, name, num_products, num_trucks, num_stations, created_at FROM instances ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []InstanceSummary{}
	var last string
	for rows.Next() {
		var s InstanceSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.NumProducts, &s.NumTrucks, &s.NumStations, &s.CreatedAt); err != nil {
			return nil, "", err
		}
		out = append(out, s)
		last = s.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateJob(ctx context.Context, instanceID string) (Job, error) {
	var exists bool
	if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM instances WHERE id=$1)`, instanceID).Scan(&exists); err != nil {
		return Job{}, err
	}
	if !exists {
		return Job{}, ErrNotFound
	}
	now := time.Now().UTC()
	j := Job{ID: uuid.New().String(), InstanceID: instanceID, Status: JobPending, CreatedAt: now, UpdatedAt: now}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO jobs (id, instance_id, status, created_at, updated_at) VALUES ($1,$2,$3,$4,$5)`,
		j.ID, j.InstanceID, j.Status, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return Job{}, err
	}
	return j, nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (Job, error) {
	var j Job
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, instance_id::text, status, error, created_at, updated_at FROM jobs WHERE id=$1`, id).
		Scan(&j.ID, &j.InstanceID, &j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return j, err
}

func (p *Postgres) SetJobRunning(ctx context.Context, id string) error {
	return p.setStatus(ctx, id, JobRunning, "")
}

func (p *Postgres) SetJobDone(ctx context.Context, id string) error {
	return p.setStatus(ctx, id, JobDone, "")
}

func (p *Postgres) SetJobFailed(ctx context.Context, id string, reason string) error {
	return p.setStatus(ctx, id, JobFailed, reason)
}

func (p *Postgres) setStatus(ctx context.Context, id, status, reason string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE jobs SET status=$2, error=$3, updated_at=now() WHERE id=$1`, id, status, reason)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (p *Postgres) SaveSolution(ctx context.Context, jobID string, sol model.Solution, met model.Metrics) error {
	solDoc, err := json.Marshal(sol)
	if err != nil {
		return err
	}
	metDoc, err := json.Marshal(met)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO solutions (job_id, solution, metrics) VALUES ($1,$2,$3)
		 ON CONFLICT (job_id) DO UPDATE SET solution=EXCLUDED.solution, metrics=EXCLUDED.metrics`,
		jobID, solDoc, metDoc)
	return err
}

func (p *Postgres) GetSolution(ctx context.Context, jobID string) (model.Solution, model.Metrics, error) {
	var solDoc, metDoc []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT solution, metrics FROM solutions WHERE job_id=$1`, jobID).Scan(&solDoc, &metDoc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Solution{}, model.Metrics{}, ErrNotFound
	}
	if err != nil {
		return model.Solution{}, model.Metrics{}, err
	}
	var sol model.Solution
	var met model.Metrics
	if err := json.Unmarshal(solDoc, &sol); err != nil {
		return model.Solution{}, model.Metrics{}, err
	}
	if err := json.Unmarshal(metDoc, &met); err != nil {
		return model.Solution{}, model.Metrics{}, err
	}
	return sol, met, nil
}
