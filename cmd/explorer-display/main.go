package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/config"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/logx"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/metrics"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/poller"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/server"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/sink"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/source"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/store"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to display config YAML file")
	sourceKind := flag.String("source", "api", "Data source (api or rpc)")
	apiURL := flag.String("api-url", "http://localhost:4000", "Explorer REST API base URL")
	rpcURL := flag.String("rpc", "http://localhost:8545", "Ethereum RPC URL")
	dbDriver := flag.String("db-driver", "sqlite3", "Database driver (sqlite3, mysql or pgx)")
	dbDSN := flag.String("db-dsn", "explorer_display.db", "Database DSN (file path for SQLite, connection string otherwise)")
	validatorsFile := flag.String("validators", "validators.yaml", "Path to validators mapping YAML file")
	listenAddr := flag.String("listen", ":9090", "HTTP listen address")
	interval := flag.Duration("interval", 3*time.Second, "Refresh interval")
	limit := flag.Int("limit", 50, "Number of blocks in the list")
	blockTypes := flag.String("block-types", "block,reorg,uncle", "Comma separated block lists to poll (block, reorg, uncle)")
	kafkaBrokers := flag.String("kafka-brokers", "", "Comma separated Kafka brokers (empty disables publishing)")
	kafkaTopic := flag.String("kafka-topic", "explorer-display", "Kafka topic for resolved snapshots")
	logFile := flag.String("log-file", "", "Optional rotating log file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	quiet := flag.Bool("quiet", false, "Only log warnings and errors")
	flag.Parse()

	logx.Init(logx.Options{Debug: *debug, Quiet: *quiet, File: *logFile})
	logx.Info("🚀 Starting explorer display")

	cfg, err := config.Load(*configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logx.Fatal("❌ Error loading configuration: %v", err)
		}
		logx.Warn("⚠️ Warning: %v, using defaults", err)
		cfg = config.Default()
	}

	names, err := config.LoadValidatorNames(*validatorsFile)
	if err != nil {
		logx.Warn("⚠️ Warning: %v", err)
	}
	names.Dump()

	m := metrics.NewMetrics()
	m.Register(prometheus.DefaultRegisterer)

	var src source.Source
	switch *sourceKind {
	case "api":
		src = source.NewAPISource(*apiURL, 10*time.Second, names)
		logx.Info("🌐 Using explorer API at %s", *apiURL)
	case "rpc":
		st, err := store.NewStore(types.DBConfig{Driver: *dbDriver, DSN: *dbDSN})
		if err != nil {
			logx.Fatal("❌ Failed to initialize store: %v", err)
		}
		defer st.Close()

		rpcSrc, err := source.DialRPC(*rpcURL, st, names, m, source.DefaultRPCOptions())
		if err != nil {
			logx.Fatal("❌ Failed to connect to RPC: %v", err)
		}
		src = rpcSrc
		logx.Info("🔗 Using RPC node at %s with %s store", *rpcURL, *dbDriver)
	default:
		logx.Fatal("❌ Unknown source %q (expected api or rpc)", *sourceKind)
	}

	typs, err := parseBlockTypes(*blockTypes)
	if err != nil {
		logx.Fatal("❌ %v", err)
	}

	p := poller.New(src, poller.Options{Interval: *interval, Limit: *limit, BlockTypes: typs}, m)
	renderer := server.NewRenderer(cfg, m)

	if *kafkaBrokers != "" {
		ks, err := sink.NewKafkaSink(strings.Split(*kafkaBrokers, ","), *kafkaTopic, nil)
		if err != nil {
			logx.Fatal("❌ %v", err)
		}
		defer ks.Close()
		logx.Info("📤 Publishing snapshots to Kafka topic %s", *kafkaTopic)
		p.OnRefresh(publisher(ks, renderer, m))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(p, renderer, prometheus.DefaultGatherer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx, *listenAddr) })

	if err := g.Wait(); err != nil {
		logx.Fatal("❌ Error running explorer display: %v", err)
	}
	logx.Info("👋 Bye")
}

func parseBlockTypes(s string) ([]types.BlockType, error) {
	var typs []types.BlockType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		typ, err := types.ParseBlockType(part)
		if err != nil {
			return nil, fmt.Errorf("invalid -block-types: %w", err)
		}
		typs = append(typs, typ)
	}
	return typs, nil
}

// publisher forwards every refreshed snapshot, already resolved for display.
func publisher(s sink.Sink, r *server.Renderer, m *metrics.Metrics) poller.Listener {
	return func(blocks types.Query[[]types.Block], stats types.Query[types.HomepageStats]) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Emit(ctx, sink.TypeBlocks, r.Blocks(blocks)); err != nil {
			logx.Error("❌ Error publishing blocks: %v", err)
			m.SinkErrors.Inc()
		}
		if panel := r.Stats(stats); panel != nil {
			if err := s.Emit(ctx, sink.TypeStats, panel); err != nil {
				logx.Error("❌ Error publishing stats: %v", err)
				m.SinkErrors.Inc()
			}
		}
	}
}
