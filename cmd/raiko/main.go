// raiko is the thin wiring entrypoint for the request orchestration core:
// it assembles the pool, ballot, actor, and worker from flags and runs
// them until interrupted. The HTTP surface and concrete RPC providers are
// wired by the deployment on top of the actor API this binary exposes.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/taikoxyz/raiko-sub002/ballot"
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/prover/native"
	"github.com/taikoxyz/raiko-sub002/provertype"
	"github.com/taikoxyz/raiko-sub002/reqactor"
	"github.com/taikoxyz/raiko-sub002/reqpool"
	"github.com/taikoxyz/raiko-sub002/worker"
)

var (
	chainIDFlag = &cli.Uint64Flag{
		Name:  "chain-id",
		Usage: "L2 chain id proofs are produced for",
		Value: 167000,
	}
	redisURLFlag = &cli.StringFlag{
		Name:  "redis-url",
		Usage: "Redis URL for the durable request pool (in-memory pool when empty)",
	}
	poolTTLFlag = &cli.DurationFlag{
		Name:  "pool-ttl",
		Usage: "TTL for pool entries; expired requests are treated as never seen",
		Value: time.Hour,
	}
	concurrencyFlag = &cli.IntFlag{
		Name:  "concurrency",
		Usage: "maximum number of proving jobs dispatched at once",
		Value: 4,
	}
	ballotFlag = &cli.StringFlag{
		Name:  "ballot",
		Usage: "zk-any draw probabilities, e.g. 'sp1=0.4,risc0=0.3'",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "logging verbosity (0=crit .. 5=trace)",
		Value: 3,
	}
)

func main() {
	app := &cli.App{
		Name:  "raiko",
		Usage: "multi-prover orchestration service",
		Flags: []cli.Flag{
			chainIDFlag, redisURLFlag, poolTTLFlag, concurrencyFlag, ballotFlag, verbosityFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(c.Int(verbosityFlag.Name)), true)
	log.SetDefault(log.NewLogger(handler))

	pool, err := buildPool(c)
	if err != nil {
		return err
	}
	drawBallot, err := parseBallot(c.String(ballotFlag.Name))
	if err != nil {
		return err
	}

	chainID := c.Uint64(chainIDFlag.Name)
	chainConfig := *params.MainnetChainConfig
	chainConfig.ChainID = new(big.Int).SetUint64(chainID)

	registry := prover.NewRegistry(map[provertype.ProofType]prover.Backend{
		provertype.ProofTypeNative: native.New(&chainConfig),
	})

	actor := reqactor.New(pool, batchSubEntityBuilder(chainID))
	w := worker.New(actor, pool, registry, reqpool.IDStoreAdapter{Pool: pool}, nil, worker.Config{
		Concurrency: c.Int(concurrencyFlag.Name),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go actor.Run(ctx)
	go w.Run(ctx)

	log.Info("raiko started",
		"chainId", chainID,
		"pool", poolKind(c),
		"concurrency", c.Int(concurrencyFlag.Name),
		"ballot", drawBallot.Probabilities())

	<-ctx.Done()
	log.Info("raiko shutting down")
	return nil
}

func buildPool(c *cli.Context) (reqpool.IDStorePool, error) {
	ttl := c.Duration(poolTTLFlag.Name)
	if url := c.String(redisURLFlag.Name); url != "" {
		return reqpool.NewRedisPool(reqpool.RedisPoolConfig{URL: url, TTL: ttl})
	}
	return reqpool.NewMemoryPool(uuid.NewString(), ttl), nil
}

func poolKind(c *cli.Context) string {
	if c.String(redisURLFlag.Name) != "" {
		return "redis"
	}
	return "memory"
}

// parseBallot turns 'sp1=0.4,risc0=0.3' into a validated Ballot.
func parseBallot(flagValue string) (*ballot.Ballot, error) {
	probs := map[provertype.ProofType]float64{}
	if flagValue != "" {
		for _, pair := range strings.Split(flagValue, ",") {
			name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return nil, fmt.Errorf("malformed ballot entry %q", pair)
			}
			pt, err := provertype.ParseProofType(name)
			if err != nil {
				return nil, err
			}
			prob, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed ballot probability %q: %w", value, err)
			}
			probs[pt] = prob
		}
	}
	return ballot.New(probs)
}

// batchSubEntityBuilder expands an aggregation's sub-ids into batch proof
// requests on the configured chain.
func batchSubEntityBuilder(chainID uint64) reqactor.SubEntityBuilder {
	return func(subID uint64, proofType provertype.ProofType) (reqpool.RequestKey, reqpool.RequestEntity) {
		key := reqpool.BatchProofRequestKey{ChainID: chainID, BatchID: subID, Type: proofType}
		entity := &reqpool.BatchProofRequestEntity{BatchID: subID, ChainID: chainID, Type: proofType}
		return key, entity
	}
}
