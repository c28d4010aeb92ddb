package registry

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"datanchor/internal/chain"
)

// Job describes a proof job tracked by the data registry.
type Job struct {
	FileID      *big.Int
	BidAmount   *big.Int
	NodeAddress common.Address
}

// Node describes a verified-computing node registered with the data registry.
type Node struct {
	URL       string
	PublicKey string
}

// Reward is the on-chain evidence of a reward transaction.
type Reward struct {
	TxHash      string
	BlockNumber uint64
}

// Client talks to the data registry contract: file registration, proof jobs,
// node lookup, and reward claims.
type Client struct {
	chain    *chain.Client
	contract *bind.BoundContract
	address  common.Address
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	logger   *zap.Logger
}

func NewClient(ctx context.Context, chainClient *chain.Client, contractAddress common.Address, key *ecdsa.PrivateKey, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed, err := DataRegistryABI()
	if err != nil {
		return nil, fmt.Errorf("registry abi: %w", err)
	}

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}

	eth := chainClient.Eth()
	return &Client{
		chain:    chainClient,
		contract: bind.NewBoundContract(contractAddress, parsed, eth, eth, eth),
		address:  contractAddress,
		key:      key,
		chainID:  chainID,
		logger:   logger,
	}, nil
}

// ContractAddress returns the bound data registry address.
func (c *Client) ContractAddress() common.Address {
	return c.address
}

// GetFileIDByURL returns the registered file id for the URL, or zero when the
// URL is unknown.
func (c *Client) GetFileIDByURL(ctx context.Context, url string) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getFileIdByUrl", url); err != nil {
		return nil, fmt.Errorf("getFileIdByUrl: %w", err)
	}
	return out[0].(*big.Int), nil
}

// AddFile registers a new file URL and returns its assigned id. Re-registering
// an already known URL returns the existing id; the contract keys files by URL.
func (c *Client) AddFile(ctx context.Context, url string) (*big.Int, error) {
	opts, err := c.transactor(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := c.contract.Transact(opts, "addFile", url)
	if err != nil {
		return nil, fmt.Errorf("addFile: %w", err)
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return nil, fmt.Errorf("addFile mine: %w", err)
	}

	fileID, err := c.GetFileIDByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("file registered", zap.String("url", url), zap.String("file_id", fileID.String()))
	return fileID, nil
}

// RequestProof submits a proof request for the file, attaching the reward
// budget as transaction value.
func (c *Client) RequestProof(ctx context.Context, fileID, budget *big.Int) error {
	opts, err := c.transactor(ctx)
	if err != nil {
		return err
	}
	opts.Value = budget

	tx, err := c.contract.Transact(opts, "requestProof", fileID)
	if err != nil {
		return fmt.Errorf("requestProof: %w", err)
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return fmt.Errorf("requestProof mine: %w", err)
	}
	return nil
}

// FileJobIDs returns the proof job ids associated with the file, oldest first.
func (c *Client) FileJobIDs(ctx context.Context, fileID *big.Int) ([]*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "fileJobIds", fileID); err != nil {
		return nil, fmt.Errorf("fileJobIds: %w", err)
	}
	return out[0].([]*big.Int), nil
}

// GetJob returns the job's file, bid, and assigned node.
func (c *Client) GetJob(ctx context.Context, jobID *big.Int) (Job, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getJob", jobID); err != nil {
		return Job{}, fmt.Errorf("getJob: %w", err)
	}
	return Job{
		FileID:      out[0].(*big.Int),
		BidAmount:   out[1].(*big.Int),
		NodeAddress: out[2].(common.Address),
	}, nil
}

// GetNode returns the node's URL and RSA public key.
func (c *Client) GetNode(ctx context.Context, nodeAddress common.Address) (Node, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getNode", nodeAddress); err != nil {
		return Node{}, fmt.Errorf("getNode: %w", err)
	}
	return Node{
		URL:       out[0].(string),
		PublicKey: out[1].(string),
	}, nil
}

// RequestReward claims the reward for a proven file and returns the mined
// transaction's hash and block number.
func (c *Client) RequestReward(ctx context.Context, fileID *big.Int) (Reward, error) {
	opts, err := c.transactor(ctx)
	if err != nil {
		return Reward{}, err
	}

	tx, err := c.contract.Transact(opts, "requestReward", fileID)
	if err != nil {
		return Reward{}, fmt.Errorf("requestReward: %w", err)
	}
	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return Reward{}, fmt.Errorf("requestReward mine: %w", err)
	}

	return Reward{
		TxHash:      tx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.chain.Eth(), tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}
