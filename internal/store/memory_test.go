package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"datanchor/internal/model"
)

func TestMemoryInsertAndFind(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	missing, err := s.FindByToken(ctx, "0xToken1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for absent token, got %+v", missing)
	}

	rec := &model.MintRecord{
		TokenAddress:    "0xToken1",
		FileID:          "42",
		JobID:           "7",
		TransactionHash: "0xAAA",
		BlockNumber:     1000,
	}
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.ID == 0 {
		t.Fatalf("id not assigned")
	}

	found, err := s.FindByToken(ctx, "0xToken1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.FileID != "42" || found.BlockNumber != 1000 {
		t.Fatalf("record mismatch: %+v", found)
	}
}

func TestMemoryInsertConflict(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first := &model.MintRecord{TokenAddress: "0xToken1", FileID: "42", BlockNumber: 1000}
	if err := s.Insert(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := &model.MintRecord{TokenAddress: "0xToken1", FileID: "43", BlockNumber: 1001}
	if err := s.Insert(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryConcurrentInsertOneWinner(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var conflicts, successes int

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Insert(ctx, &model.MintRecord{TokenAddress: "0xToken1", FileID: "42", BlockNumber: 1000})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful insert, got %d", successes)
	}
	if conflicts != 15 {
		t.Fatalf("expected 15 conflicts, got %d", conflicts)
	}
}

func TestMemoryUpdateAttestationWriteOnce(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	rec := &model.MintRecord{TokenAddress: "0xToken1", FileID: "42", BlockNumber: 1000}
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	first := model.Attestation{Attestator: "0xNode", TxHash: "0xEv1", BlockNumber: 950}
	if err := s.UpdateAttestation(ctx, "0xToken1", "42", first); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Second write must not overwrite.
	second := model.Attestation{Attestator: "0xLate", TxHash: "0xEv2", BlockNumber: 970}
	if err := s.UpdateAttestation(ctx, "0xToken1", "42", second); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.FindByToken(ctx, "0xToken1")
	if *got.Attestator != "0xNode" || *got.AttestatorHash != "0xEv1" || *got.AttestatorBlock != 950 {
		t.Fatalf("attestation overwritten: %+v", got)
	}

	// Mismatched file id is ignored.
	if err := s.UpdateAttestation(ctx, "0xToken1", "99", second); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestMemoryFindMissingAttestator(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if err := s.Insert(ctx, &model.MintRecord{TokenAddress: "0xPending", FileID: "42", BlockNumber: 1000}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, &model.MintRecord{TokenAddress: "0xDone", FileID: "43", BlockNumber: 1100}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := s.UpdateAttestation(ctx, "0xDone", "43", model.Attestation{Attestator: "0xNode", TxHash: "0xEv", BlockNumber: 1050})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	missing, err := s.FindMissingAttestator(ctx)
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if len(missing) != 1 || missing[0].TokenAddress != "0xPending" {
		t.Fatalf("wrong missing set: %+v", missing)
	}
}
