package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"datanchor/internal/chain"
	"datanchor/internal/config"
	"datanchor/internal/ipfs"
	"datanchor/internal/mint"
	"datanchor/internal/model"
	"datanchor/internal/node"
	"datanchor/internal/project"
	"datanchor/internal/queue"
	"datanchor/internal/reconcile"
	"datanchor/internal/registry"
	"datanchor/internal/resolve"
	"datanchor/internal/scanner"
	"datanchor/internal/seal"
	"datanchor/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:          "datanchor",
		Short:        "DAT minting and attestation service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the queue workers and the reconciliation scheduler",
		RunE:  runWorkers,
	}
	addServiceFlags(runCmd)
	root.AddCommand(runCmd)

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Enqueue a mint job for a token",
		RunE:  runMint,
	}
	addServiceFlags(mintCmd)
	mintCmd.Flags().String("token", "", "token address to mint a DAT for")
	mintCmd.Flags().String("file", "", "path to the privacy data file")
	mintCmd.Flags().String("name", "", "file name to store (defaults to the file's base name)")
	root.AddCommand(mintCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "ledger RPC URL")
	cmd.Flags().String("contract", "", "data registry contract address")
	cmd.Flags().String("private-key", "", "wallet private key (hex)")
	cmd.Flags().String("encryption-seed", "", "fixed encryption seed for password derivation")
	cmd.Flags().String("pinata-jwt", "", "Pinata API JWT")
	cmd.Flags().String("pinata-gateway", "", "IPFS gateway base URL")
	cmd.Flags().String("redis", "127.0.0.1:6379", "Redis address for the queue fabric")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Int64("reward-budget", 100, "reward budget attached to proof requests")
	cmd.Flags().Uint64("lookback-blocks", resolve.DefaultLookbackBlocks, "blocks scanned below the mint block for the attestation event")
	cmd.Flags().Uint64("chunk-size", scanner.DefaultChunkSize, "blocks per log query")
	cmd.Flags().Duration("reconcile-interval", reconcile.DefaultInterval, "reconciliation sweep period")
	cmd.Flags().Int("concurrency", 10, "queue worker concurrency")
	cmd.Flags().Duration("node-timeout", 120*time.Second, "compute node HTTP timeout")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runWorkers(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !common.IsHexAddress(cfg.ContractAddress) {
		return fmt.Errorf("invalid contract address: %s", cfg.ContractAddress)
	}
	contractAddress := common.HexToAddress(cfg.ContractAddress)

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}

	recordStore, err := store.NewPostgres(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer recordStore.Close()
	if err := recordStore.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	registryClient, err := registry.NewClient(ctx, chainClient, contractAddress, key, logger)
	if err != nil {
		return err
	}

	redis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queueClient := queue.NewClient(redis, logger)
	defer queueClient.Close()

	minter := mint.NewService(
		mint.Config{
			PrivateKey:     key,
			EncryptionSeed: cfg.EncryptionSeed,
			RewardBudget:   cfg.RewardBudgetWei(),
		},
		recordStore,
		registryClient,
		seal.AESGCM{},
		ipfs.NewPinata(cfg.PinataJWT, cfg.PinataGateway),
		node.NewClient(cfg.NodeTimeout),
		project.NewRepo(recordStore.Pool()),
		queueClient,
		logger,
	)

	logScanner := scanner.New(chainClient, contractAddress, cfg.ChunkSize, logger)
	resolver := resolve.NewWorker(recordStore, logScanner, cfg.LookbackBlocks, logger)
	reconciler := reconcile.New(recordStore, queueClient, logger)

	topo := queue.DefaultTopology()
	server := queue.NewServer(redis, topo, cfg.Concurrency, logger)
	mux := queue.NewMux(minter, resolver, reconciler)

	scheduler, err := queue.NewScheduler(redis, cfg.ReconcileInterval, logger)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	logger.Info("workers start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.ContractAddress),
		zap.String("redis", cfg.RedisAddr),
		zap.Uint64("lookback_blocks", cfg.LookbackBlocks),
		zap.Uint64("chunk_size", cfg.ChunkSize),
		zap.Duration("reconcile_interval", cfg.ReconcileInterval),
		zap.Int("concurrency", cfg.Concurrency),
	)

	if err := server.Start(mux); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	scheduler.Shutdown()
	server.Shutdown()
	return nil
}

func runMint(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	token, _ := cmd.Flags().GetString("token")
	filePath, _ := cmd.Flags().GetString("file")
	fileName, _ := cmd.Flags().GetString("name")

	if token == "" {
		return fmt.Errorf("token address is required")
	}
	if !common.IsHexAddress(token) {
		return fmt.Errorf("invalid token address: %s", token)
	}
	if filePath == "" {
		return fmt.Errorf("privacy data file is required")
	}
	if fileName == "" {
		fileName = filepath.Base(filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read privacy data: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueClient := queue.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, logger)
	defer queueClient.Close()

	err = queueClient.EnqueueMint(ctx, model.MintJob{
		TokenAddress: token,
		FileName:     fileName,
		PrivacyData:  data,
	})
	if err != nil {
		return fmt.Errorf("enqueue mint: %w", err)
	}

	logger.Info("mint job enqueued", zap.String("token", token), zap.String("file", fileName))
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
