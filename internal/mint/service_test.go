package mint

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"datanchor/internal/ipfs"
	"datanchor/internal/model"
	"datanchor/internal/node"
	"datanchor/internal/registry"
	"datanchor/internal/seal"
	"datanchor/internal/store"
)

type fakeRegistry struct {
	files      map[string]*big.Int
	nextFileID int64
	jobIDs     []*big.Int
	node       registry.Node
	reward     registry.Reward
	calls      []string
}

func (f *fakeRegistry) GetFileIDByURL(_ context.Context, url string) (*big.Int, error) {
	f.calls = append(f.calls, "getFileIdByUrl")
	if id, ok := f.files[url]; ok {
		return id, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeRegistry) AddFile(_ context.Context, url string) (*big.Int, error) {
	f.calls = append(f.calls, "addFile")
	id := big.NewInt(f.nextFileID)
	f.files[url] = id
	return id, nil
}

func (f *fakeRegistry) RequestProof(context.Context, *big.Int, *big.Int) error {
	f.calls = append(f.calls, "requestProof")
	return nil
}

func (f *fakeRegistry) FileJobIDs(context.Context, *big.Int) ([]*big.Int, error) {
	f.calls = append(f.calls, "fileJobIds")
	return f.jobIDs, nil
}

func (f *fakeRegistry) GetJob(context.Context, *big.Int) (registry.Job, error) {
	f.calls = append(f.calls, "getJob")
	return registry.Job{NodeAddress: common.HexToAddress("0x5555555555555555555555555555555555555555")}, nil
}

func (f *fakeRegistry) GetNode(context.Context, common.Address) (registry.Node, error) {
	f.calls = append(f.calls, "getNode")
	return f.node, nil
}

func (f *fakeRegistry) RequestReward(context.Context, *big.Int) (registry.Reward, error) {
	f.calls = append(f.calls, "requestReward")
	return f.reward, nil
}

type fakeUploader struct {
	uploads int
}

func (f *fakeUploader) Upload(_ context.Context, name string, _ []byte) (ipfs.FileMeta, error) {
	f.uploads++
	return ipfs.FileMeta{ID: "QmX", URL: "https://gateway.example.com/ipfs/QmX"}, nil
}

type fakeProofClient struct {
	err      error
	requests []node.ProofRequest
}

func (f *fakeProofClient) RequestProof(_ context.Context, _ string, req node.ProofRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

type fakeProjects struct {
	marked []string
}

func (f *fakeProjects) MarkAIAttested(_ context.Context, token string) error {
	f.marked = append(f.marked, token)
	return nil
}

type fakeEnqueuer struct {
	jobs []model.ResolveAttestatorJob
}

func (f *fakeEnqueuer) EnqueueResolveAttestator(_ context.Context, job model.ResolveAttestatorJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fixture struct {
	service  *Service
	store    *store.Memory
	registry *fakeRegistry
	uploader *fakeUploader
	proofs   *fakeProofClient
	projects *fakeProjects
	enqueuer *fakeEnqueuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	nodeKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	nodePubPEM := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&nodeKey.PublicKey),
	}))

	f := &fixture{
		store: store.NewMemory(),
		registry: &fakeRegistry{
			files:      make(map[string]*big.Int),
			nextFileID: 42,
			jobIDs:     []*big.Int{big.NewInt(7)},
			node:       registry.Node{URL: "https://node.example.com", PublicKey: nodePubPEM},
			reward:     registry.Reward{TxHash: "0xAAA", BlockNumber: 1000},
		},
		uploader: &fakeUploader{},
		proofs:   &fakeProofClient{},
		projects: &fakeProjects{},
		enqueuer: &fakeEnqueuer{},
	}
	f.service = NewService(
		Config{
			PrivateKey:     walletKey,
			EncryptionSeed: "seed",
			RewardBudget:   big.NewInt(100),
		},
		f.store, f.registry, seal.AESGCM{}, f.uploader, f.proofs, f.projects, f.enqueuer,
		nil,
	)
	return f
}

func TestMint(t *testing.T) {
	f := newFixture(t)

	rec, err := f.service.Mint(context.Background(), model.MintJob{
		TokenAddress: "0xToken1",
		FileName:     "file.bin",
		PrivacyData:  []byte("secret"),
	})
	require.NoError(t, err)

	require.Equal(t, "0xToken1", rec.TokenAddress)
	require.Equal(t, "42", rec.FileID)
	require.Equal(t, "7", rec.JobID)
	require.Equal(t, "0xAAA", rec.TransactionHash)
	require.Equal(t, uint64(1000), rec.BlockNumber)
	require.Nil(t, rec.AttestatorHash)

	require.Len(t, f.enqueuer.jobs, 1)
	require.Equal(t, model.ResolveAttestatorJob{
		TokenAddress: "0xToken1",
		FileID:       "42",
		BlockNumber:  1000,
	}, f.enqueuer.jobs[0])

	require.Equal(t, []string{"0xToken1"}, f.projects.marked)

	require.Len(t, f.proofs.requests, 1)
	req := f.proofs.requests[0]
	require.Equal(t, int64(7), req.JobID)
	require.Equal(t, int64(42), req.FileID)
	require.Equal(t, "https://gateway.example.com/ipfs/QmX", req.FileURL)
	require.Equal(t, "seed", req.EncryptionSeed)
	require.NotEmpty(t, req.EncryptionKey)
}

func TestMintIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.service.Mint(context.Background(), model.MintJob{
		TokenAddress: "0xToken1",
		FileName:     "file.bin",
		PrivacyData:  []byte("secret"),
	})
	require.NoError(t, err)

	callsAfterFirst := len(f.registry.calls)
	uploadsAfterFirst := f.uploader.uploads

	// Even a different payload returns the existing record untouched.
	second, err := f.service.Mint(context.Background(), model.MintJob{
		TokenAddress: "0xToken1",
		FileName:     "other.bin",
		PrivacyData:  []byte("different"),
	})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.FileID, second.FileID)
	require.Equal(t, callsAfterFirst, len(f.registry.calls), "no registry calls on duplicate mint")
	require.Equal(t, uploadsAfterFirst, f.uploader.uploads, "no upload on duplicate mint")
	require.Len(t, f.enqueuer.jobs, 1, "no second resolve job")
}

func TestMintNoJobIDs(t *testing.T) {
	f := newFixture(t)
	f.registry.jobIDs = nil

	_, err := f.service.Mint(context.Background(), model.MintJob{
		TokenAddress: "0xToken1",
		FileName:     "file.bin",
		PrivacyData:  []byte("secret"),
	})
	require.ErrorIs(t, err, ErrAttestationUnavailable)

	rec, err := f.store.FindByToken(context.Background(), "0xToken1")
	require.NoError(t, err)
	require.Nil(t, rec, "no record persisted on failed mint")
}

func TestMintProofRequestFailed(t *testing.T) {
	f := newFixture(t)
	f.proofs.err = &node.ProofRequestError{Status: 500, Body: "boom"}

	_, err := f.service.Mint(context.Background(), model.MintJob{
		TokenAddress: "0xToken1",
		FileName:     "file.bin",
		PrivacyData:  []byte("secret"),
	})

	var reqErr *node.ProofRequestError
	require.ErrorAs(t, err, &reqErr)

	rec, err := f.store.FindByToken(context.Background(), "0xToken1")
	require.NoError(t, err)
	require.Nil(t, rec, "no record persisted on proof failure")
	require.Empty(t, f.enqueuer.jobs)
	require.Empty(t, f.projects.marked)
}

func TestMintReusesRegisteredFile(t *testing.T) {
	f := newFixture(t)
	// A previous attempt registered the URL but died before persisting.
	f.registry.files["https://gateway.example.com/ipfs/QmX"] = big.NewInt(42)

	rec, err := f.service.Mint(context.Background(), model.MintJob{
		TokenAddress: "0xToken1",
		FileName:     "file.bin",
		PrivacyData:  []byte("secret"),
	})
	require.NoError(t, err)
	require.Equal(t, "42", rec.FileID)
	require.NotContains(t, f.registry.calls, "addFile")
}

func TestMintInsertConflict(t *testing.T) {
	f := newFixture(t)

	// A concurrent mint slips its record in after the idempotency check.
	raced := &model.MintRecord{
		TokenAddress:    "0xToken1",
		FileID:          "42",
		JobID:           "6",
		TransactionHash: "0xBBB",
		BlockNumber:     999,
	}
	require.NoError(t, f.store.Insert(context.Background(), raced))

	conflictStore := &insertConflictStore{Memory: f.store}
	f.service.store = conflictStore

	rec, err := f.service.Mint(context.Background(), model.MintJob{
		TokenAddress: "0xToken1",
		FileName:     "file.bin",
		PrivacyData:  []byte("secret"),
	})
	require.NoError(t, err)
	require.Equal(t, "0xBBB", rec.TransactionHash, "conflict resolves to the winner's record")
}

// insertConflictStore hides the record from the pre-check so the insert path
// hits the uniqueness constraint.
type insertConflictStore struct {
	*store.Memory
	checked bool
}

func (s *insertConflictStore) FindByToken(ctx context.Context, token string) (*model.MintRecord, error) {
	if !s.checked {
		s.checked = true
		return nil, nil
	}
	return s.Memory.FindByToken(ctx, token)
}

func (s *insertConflictStore) Insert(ctx context.Context, rec *model.MintRecord) error {
	err := s.Memory.Insert(ctx, rec)
	if !errors.Is(err, store.ErrConflict) {
		return errors.New("expected conflict")
	}
	return err
}
