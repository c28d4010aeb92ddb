package store

import (
	"context"
	"sync"
	"time"

	"datanchor/internal/model"
)

// Memory is an in-process Store. It enforces the same token uniqueness and
// write-once attestation semantics as the Postgres store.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*model.MintRecord
}

func NewMemory() *Memory {
	return &Memory{
		nextID:  1,
		records: make(map[string]*model.MintRecord),
	}
}

func (m *Memory) FindByToken(_ context.Context, tokenAddress string) (*model.MintRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[tokenAddress]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) Insert(_ context.Context, rec *model.MintRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.TokenAddress]; ok {
		return ErrConflict
	}

	rec.ID = m.nextID
	m.nextID++
	rec.CreatedAt = time.Now().UTC()

	cp := *rec
	m.records[rec.TokenAddress] = &cp
	return nil
}

func (m *Memory) UpdateAttestation(_ context.Context, tokenAddress, fileID string, att model.Attestation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[tokenAddress]
	if !ok || rec.FileID != fileID || rec.AttestatorHash != nil {
		return nil
	}

	attestator := att.Attestator
	hash := att.TxHash
	block := att.BlockNumber
	now := time.Now().UTC()

	rec.Attestator = &attestator
	rec.AttestatorHash = &hash
	rec.AttestatorBlock = &block
	rec.UpdatedAt = &now
	return nil
}

func (m *Memory) FindMissingAttestator(_ context.Context) ([]model.MintRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]model.MintRecord, 0)
	for _, rec := range m.records {
		if rec.AttestatorHash == nil && rec.BlockNumber != 0 {
			records = append(records, *rec)
		}
	}
	return records, nil
}
