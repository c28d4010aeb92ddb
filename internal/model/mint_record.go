package model

import "time"

// MintRecord is the unit of truth for one anchored privacy-data artifact.
// Exactly one record exists per token address; the unique index on
// token_address is the only guard against duplicate minting.
type MintRecord struct {
	ID              int64      `json:"id"`
	TokenAddress    string     `json:"token_address"`
	FileID          string     `json:"file_id"`
	JobID           string     `json:"job_id"`
	TransactionHash string     `json:"transaction_hash"`
	BlockNumber     uint64     `json:"block_number"`
	Attestator      *string    `json:"attestator"`
	AttestatorHash  *string    `json:"attestator_hash"`
	AttestatorBlock *uint64    `json:"attestator_block_number"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// Attested reports whether the record already carries attestator evidence.
func (r *MintRecord) Attested() bool {
	return r.AttestatorHash != nil
}

// Attestation is the evidence extracted from a JobComplete event. The three
// fields are written together, once; they are never cleared or overwritten.
type Attestation struct {
	Attestator  string
	TxHash      string
	BlockNumber uint64
}
