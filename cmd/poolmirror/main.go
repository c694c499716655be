// poolmirror is the CLI entrypoint for the pool-mirror/quoting engine:
// it reads chain endpoints and a log level, starts the engine, and
// blocks until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/poolmirror/engine"
	"github.com/poolmirror/engine/chain"
)

const envPrefix = "POOLMIRROR"

var logLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "log level: trace, debug, info, warn, error",
	Value:   "info",
}

var endpointsFlag = &cli.StringSliceFlag{
	Name:  "endpoint",
	Usage: "chain=url JSON-RPC endpoint, repeatable (e.g. --endpoint 1=https://rpc.example/1)",
}

var metricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Usage: "address to serve Prometheus /metrics on; empty disables it",
	Value: ":9090",
}

var app = &cli.App{
	Name:    "poolmirror",
	Usage:   "mirrors on-chain AMM pool state and serves swap quotes",
	Version: "0.1.0",
	Flags:   []cli.Flag{logLevelFlag, endpointsFlag, metricsAddrFlag},
	Action:  run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveLogLevel applies the flag/env/default precedence SPEC_FULL.md's
// Configuration section describes: an explicit --log-level flag wins,
// otherwise POOLMIRROR_LOG_LEVEL, otherwise logLevelFlag's default.
func resolveLogLevel(c *cli.Context) string {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if c.IsSet(logLevelFlag.Name) {
		return c.String(logLevelFlag.Name)
	}
	if s := v.GetString(logLevelFlag.Name); s != "" {
		return s
	}
	return logLevelFlag.Value
}

// parseEndpoints turns repeated --endpoint chain=url flags into a
// per-chain list of chain.Endpoint, one historical-mode chain per
// distinct chain id named on the command line.
func parseEndpoints(raw []string) (map[uint64][]chain.Endpoint, error) {
	out := make(map[uint64][]chain.Endpoint)
	for _, e := range raw {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --endpoint %q: want chain=url", e)
		}
		var chainID uint64
		if _, err := fmt.Sscanf(parts[0], "%d", &chainID); err != nil {
			return nil, fmt.Errorf("invalid --endpoint chain id %q: %w", parts[0], err)
		}
		ep := chain.Endpoint{HTTPURL: parts[1]}
		if strings.HasPrefix(parts[1], "ws://") || strings.HasPrefix(parts[1], "wss://") {
			ep = chain.Endpoint{WSURL: parts[1]}
		}
		out[chainID] = append(out[chainID], ep)
	}
	return out, nil
}

func run(c *cli.Context) error {
	lvl, err := gethlog.LvlFromString(resolveLogLevel(c))
	if err != nil {
		return fmt.Errorf("poolmirror: %w", err)
	}
	logger := gethlog.NewLogger(gethlog.NewTerminalHandlerWithLevel(os.Stderr, lvl, true))
	gethlog.SetDefault(logger)

	byChain, err := parseEndpoints(c.StringSlice(endpointsFlag.Name))
	if err != nil {
		return err
	}

	var chains []engine.ChainConfig
	for chainID, endpoints := range byChain {
		chains = append(chains, engine.ChainConfig{
			ChainID:   chainID,
			Endpoints: endpoints,
			Mode:      engine.ModeHistorical,
		})
	}

	eng := engine.New(engine.EngineConfig{Chains: chains, Log: logger})

	if addr := c.String(metricsAddrFlag.Name); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(eng.Metrics(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("poolmirror: metrics server exited", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(chains) == 0 {
		logger.Warn("poolmirror: no --endpoint configured, idling until interrupted")
		<-ctx.Done()
		return nil
	}

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("poolmirror: engine exited: %w", err)
	}
	return nil
}
