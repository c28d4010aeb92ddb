package store

import (
	"context"
	"errors"

	"datanchor/internal/model"
)

// ErrConflict is returned by Insert when a record for the token already
// exists. Callers treat it the same as finding the record up front.
var ErrConflict = errors.New("mint record already exists")

// Store is the persisted keyed store for mint records. All components reach
// the record through this interface; nothing shares in-memory record state.
type Store interface {
	// FindByToken returns the record for the token, or (nil, nil) when absent.
	FindByToken(ctx context.Context, tokenAddress string) (*model.MintRecord, error)

	// Insert persists a new record. A uniqueness violation on token_address
	// is reported as ErrConflict.
	Insert(ctx context.Context, rec *model.MintRecord) error

	// UpdateAttestation sets the attestator evidence on the record matching
	// tokenAddress and fileID, only if it has none yet. Updating an already
	// attested record is a no-op.
	UpdateAttestation(ctx context.Context, tokenAddress, fileID string, att model.Attestation) error

	// FindMissingAttestator lists records that reached Minted (block number
	// set) but carry no attestator evidence yet.
	FindMissingAttestator(ctx context.Context) ([]model.MintRecord, error)
}
