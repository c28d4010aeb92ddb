package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"datanchor/internal/model"
)

const uniqueViolation = "23505"

// Postgres provides Postgres persistence for mint records.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool exposes the underlying connection pool so sibling repositories can
// share it.
func (s *Postgres) Pool() *pgxpool.Pool {
	return s.pool
}

// EnsureSchema creates the mint record table and its unique token index.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS mint_records (
			id BIGSERIAL PRIMARY KEY,
			token_address TEXT NOT NULL,
			file_id TEXT NOT NULL,
			job_id TEXT NOT NULL,
			transaction_hash TEXT NOT NULL,
			block_number BIGINT NOT NULL,
			attestator TEXT,
			attestator_hash TEXT,
			attestator_block_number BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ
		);
		CREATE UNIQUE INDEX IF NOT EXISTS ux_mint_records_token_address
			ON mint_records (token_address);
	`)
	return err
}

func (s *Postgres) FindByToken(ctx context.Context, tokenAddress string) (*model.MintRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, token_address, file_id, job_id, transaction_hash, block_number,
		       attestator, attestator_hash, attestator_block_number, created_at, updated_at
		FROM mint_records
		WHERE token_address = $1
	`, tokenAddress)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (s *Postgres) Insert(ctx context.Context, rec *model.MintRecord) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO mint_records (
			token_address, file_id, job_id, transaction_hash, block_number, created_at
		) VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at
	`,
		rec.TokenAddress,
		rec.FileID,
		rec.JobID,
		rec.TransactionHash,
		int64(rec.BlockNumber),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *Postgres) UpdateAttestation(ctx context.Context, tokenAddress, fileID string, att model.Attestation) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE mint_records
		SET attestator = $3,
		    attestator_hash = $4,
		    attestator_block_number = $5,
		    updated_at = now()
		WHERE token_address = $1
		  AND file_id = $2
		  AND attestator_hash IS NULL
	`,
		tokenAddress,
		fileID,
		att.Attestator,
		att.TxHash,
		int64(att.BlockNumber),
	)
	return err
}

func (s *Postgres) FindMissingAttestator(ctx context.Context) ([]model.MintRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, token_address, file_id, job_id, transaction_hash, block_number,
		       attestator, attestator_hash, attestator_block_number, created_at, updated_at
		FROM mint_records
		WHERE attestator_hash IS NULL
		  AND block_number IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.MintRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*model.MintRecord, error) {
	var rec model.MintRecord
	var blockNumber int64
	var attestatorBlock *int64

	err := row.Scan(
		&rec.ID,
		&rec.TokenAddress,
		&rec.FileID,
		&rec.JobID,
		&rec.TransactionHash,
		&blockNumber,
		&rec.Attestator,
		&rec.AttestatorHash,
		&attestatorBlock,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.BlockNumber = uint64(blockNumber)
	if attestatorBlock != nil {
		v := uint64(*attestatorBlock)
		rec.AttestatorBlock = &v
	}
	return &rec, nil
}
