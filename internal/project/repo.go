package project

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the read-model side of the project entity. Minting only flips one
// flag on it; everything else about projects belongs to another service.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// MarkAIAttested flags the project for the token as AI-attested.
func (r *Repo) MarkAIAttested(ctx context.Context, tokenAddress string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET is_ai_attested = 1
		WHERE token_address = $1
	`, tokenAddress)
	return err
}
