package bills

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Several API replicas may start at once; only the lock holder migrates.
	const lockID = 731204551

	var acquired bool
	if err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bills (
			id UUID PRIMARY KEY,
			date DATE NOT NULL,
			time TEXT NOT NULL,
			doctor_name TEXT NOT NULL,
			doctor_email TEXT NOT NULL,
			doctor_hospital TEXT NOT NULL,
			patient TEXT NOT NULL,
			items JSONB NOT NULL,
			codes TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS bills_codes_idx ON bills USING gin (codes);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate bills: %w", err)
		}
	}
	return nil
}

const selectBill = `SELECT id, to_char(date, 'YYYY-MM-DD'), time, doctor_name, doctor_email, doctor_hospital, patient, items FROM bills`

func (s *PostgresStore) Create(ctx context.Context, b Bill) (Bill, error) {
	b.ID = uuid.New()
	items, err := json.Marshal(b.Items)
	if err != nil {
		return Bill{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bills(id, date, time, doctor_name, doctor_email, doctor_hospital, patient, items, codes)
		VALUES($1,$2::date,$3,$4,$5,$6,$7,$8::jsonb,$9)`,
		b.ID, b.Date, b.Time, b.DoctorName, b.DoctorEmail, b.DoctorHospital, b.Patient, string(items), pq.Array(b.Codes()))
	if err != nil {
		return Bill{}, fmt.Errorf("insert bill: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Bill, error) {
	rows, err := s.db.QueryContext(ctx, selectBill+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Bill, error) {
	b, err := scanBill(s.db.QueryRowContext(ctx, selectBill+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Bill{}, ErrNotFound
	}
	if err != nil {
		return Bill{}, fmt.Errorf("failed to get bill %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, b Bill) (Bill, error) {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return Bill{}, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE bills SET date=$2::date, time=$3, doctor_name=$4, doctor_email=$5, doctor_hospital=$6,
			patient=$7, items=$8::jsonb, codes=$9
		WHERE id=$1`,
		id, b.Date, b.Time, b.DoctorName, b.DoctorEmail, b.DoctorHospital, b.Patient, string(items), pq.Array(b.Codes()))
	if err != nil {
		return Bill{}, fmt.Errorf("update bill %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Bill{}, ErrNotFound
	}
	b.ID = id
	return b, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bills WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner) (Bill, error) {
	var (
		b     Bill
		items []byte
	)
	if err := row.Scan(&b.ID, &b.Date, &b.Time, &b.DoctorName, &b.DoctorEmail, &b.DoctorHospital, &b.Patient, &items); err != nil {
		return Bill{}, err
	}
	if err := json.Unmarshal(items, &b.Items); err != nil {
		return Bill{}, fmt.Errorf("decode items of bill %s: %w", b.ID, err)
	}
	return b, nil
}
