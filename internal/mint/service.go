package mint

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"datanchor/internal/ipfs"
	"datanchor/internal/model"
	"datanchor/internal/node"
	"datanchor/internal/registry"
	"datanchor/internal/seal"
	"datanchor/internal/store"
)

// ErrAttestationUnavailable is returned when the registry reports no proof
// job for the file after a proof request. Minting cannot proceed without a
// job id; the error is surfaced to the queue for its retry policy.
var ErrAttestationUnavailable = errors.New("no proof job ids found for file")

// Registry is the ledger-side collaborator contract.
type Registry interface {
	GetFileIDByURL(ctx context.Context, url string) (*big.Int, error)
	AddFile(ctx context.Context, url string) (*big.Int, error)
	RequestProof(ctx context.Context, fileID, budget *big.Int) error
	FileJobIDs(ctx context.Context, fileID *big.Int) ([]*big.Int, error)
	GetJob(ctx context.Context, jobID *big.Int) (registry.Job, error)
	GetNode(ctx context.Context, nodeAddress common.Address) (registry.Node, error)
	RequestReward(ctx context.Context, fileID *big.Int) (registry.Reward, error)
}

// Uploader stores the encrypted payload and returns a stable retrieval URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (ipfs.FileMeta, error)
}

// ProofClient submits the proof request to a verified-computing node.
type ProofClient interface {
	RequestProof(ctx context.Context, nodeURL string, req node.ProofRequest) error
}

// Projects is the external read-model side effect.
type Projects interface {
	MarkAIAttested(ctx context.Context, tokenAddress string) error
}

// ResolveEnqueuer hands a resolve-attestator job to the queue fabric.
type ResolveEnqueuer interface {
	EnqueueResolveAttestator(ctx context.Context, job model.ResolveAttestatorJob) error
}

// Config holds the orchestrator's fixed inputs.
type Config struct {
	PrivateKey     *ecdsa.PrivateKey
	EncryptionSeed string
	RewardBudget   *big.Int
}

// Service turns raw private data into a minted, on-chain-anchored record.
type Service struct {
	cfg       Config
	store     store.Store
	registry  Registry
	encryptor seal.Encryptor
	uploader  Uploader
	proofs    ProofClient
	projects  Projects
	enqueuer  ResolveEnqueuer
	logger    *zap.Logger
}

func NewService(
	cfg Config,
	recordStore store.Store,
	reg Registry,
	encryptor seal.Encryptor,
	uploader Uploader,
	proofs ProofClient,
	projects Projects,
	enqueuer ResolveEnqueuer,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		store:     recordStore,
		registry:  reg,
		encryptor: encryptor,
		uploader:  uploader,
		proofs:    proofs,
		projects:  projects,
		enqueuer:  enqueuer,
		logger:    logger,
	}
}

// Mint executes the end-to-end minting workflow. It is a no-op for an already
// minted token, and persists nothing when any step before the reward fails,
// so the queue can retry the whole operation from scratch.
func (s *Service) Mint(ctx context.Context, job model.MintJob) (*model.MintRecord, error) {
	existing, err := s.store.FindByToken(ctx, job.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("lookup record: %w", err)
	}
	if existing != nil {
		s.logger.Warn("token already minted", zap.String("token", job.TokenAddress))
		return existing, nil
	}

	password, err := seal.DerivePassword(s.cfg.PrivateKey, s.cfg.EncryptionSeed)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.encryptor.Encrypt(job.PrivacyData, password)
	if err != nil {
		return nil, fmt.Errorf("encrypt privacy data: %w", err)
	}
	s.logger.Debug("privacy data encrypted", zap.String("file_name", job.FileName))

	meta, err := s.uploader.Upload(ctx, job.FileName, encrypted)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	// Registration is keyed by URL on the contract side, so a retry of this
	// step reuses the already registered file instead of leaking a duplicate.
	fileID, err := s.registry.GetFileIDByURL(ctx, meta.URL)
	if err != nil {
		return nil, err
	}
	if fileID.Sign() == 0 {
		fileID, err = s.registry.AddFile(ctx, meta.URL)
		if err != nil {
			return nil, err
		}
	}
	s.logger.Debug("file registered",
		zap.String("file_id", fileID.String()),
		zap.String("url", meta.URL),
	)

	if err := s.registry.RequestProof(ctx, fileID, s.cfg.RewardBudget); err != nil {
		return nil, err
	}
	jobIDs, err := s.registry.FileJobIDs(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if len(jobIDs) == 0 {
		return nil, fmt.Errorf("file %s: %w", fileID, ErrAttestationUnavailable)
	}

	// The registry returns job ids oldest first; take the one our proof
	// request just created.
	jobID := jobIDs[len(jobIDs)-1]

	proofJob, err := s.registry.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	nodeInfo, err := s.registry.GetNode(ctx, proofJob.NodeAddress)
	if err != nil {
		return nil, err
	}

	encKey, err := seal.EncryptWithRSA(nodeInfo.PublicKey, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("encrypt key for node: %w", err)
	}

	err = s.proofs.RequestProof(ctx, nodeInfo.URL, node.ProofRequest{
		JobID:          jobID.Int64(),
		FileID:         fileID.Int64(),
		FileURL:        meta.URL,
		EncryptionKey:  encKey,
		EncryptionSeed: s.cfg.EncryptionSeed,
	})
	if err != nil {
		s.logger.Error("proof request failed",
			zap.Error(err),
			zap.String("token", job.TokenAddress),
			zap.String("node_url", nodeInfo.URL),
		)
		return nil, err
	}

	reward, err := s.registry.RequestReward(ctx, fileID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reward requested",
		zap.String("file_id", fileID.String()),
		zap.String("tx", reward.TxHash),
		zap.Uint64("block", reward.BlockNumber),
	)

	rec := &model.MintRecord{
		TokenAddress:    job.TokenAddress,
		FileID:          fileID.String(),
		JobID:           jobID.String(),
		TransactionHash: reward.TxHash,
		BlockNumber:     reward.BlockNumber,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// A concurrent mint for the same token won the insert race.
			// Treat it exactly like finding the record up front.
			s.logger.Warn("lost mint race", zap.String("token", job.TokenAddress))
			return s.store.FindByToken(ctx, job.TokenAddress)
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}

	// A lost resolve job is recovered by the periodic reconciliation sweep,
	// so an enqueue failure must not fail the mint after the record exists.
	err = s.enqueuer.EnqueueResolveAttestator(ctx, model.ResolveAttestatorJob{
		TokenAddress: job.TokenAddress,
		FileID:       rec.FileID,
		BlockNumber:  rec.BlockNumber,
	})
	if err != nil {
		s.logger.Error("enqueue resolve-attestator failed",
			zap.Error(err),
			zap.String("token", job.TokenAddress),
		)
	}

	if err := s.projects.MarkAIAttested(ctx, job.TokenAddress); err != nil {
		s.logger.Warn("mark project attested failed",
			zap.Error(err),
			zap.String("token", job.TokenAddress),
		)
	}

	return rec, nil
}
