package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/nodestat"
	"github.com/sarchlab/nodestat/config"
	"github.com/sarchlab/nodestat/exporter"
	"github.com/sarchlab/nodestat/hook"
	"github.com/sarchlab/nodestat/registry"
	"github.com/sarchlab/nodestat/replay"
	"github.com/sarchlab/nodestat/timemodel"
	"github.com/tebeka/atexit"
	"gitlab.com/akita/akita/v3/monitoring"
	"gitlab.com/akita/akita/v3/sim"
)

var configFile = flag.String("config", "", "The YAML configuration file.")
var network = flag.String("network", "espcn", "The demo network: espcn, srnet or classifier.")
var inputShape = flag.String("input-shape", "3,32,32", "The shape of one input sample, without the batch dimension.")
var batchSize = flag.Int("batch-size", 1, "The batch size of the warm-up pass.")
var dtype = flag.String("dtype", "float32", "The element type of the warm-up input.")
var csvPath = flag.String("csv", "", "The file the report is written to.")
var rollupDepth = flag.Int("rollup", 0, "Also print the report merged at this path depth.")
var estimator = flag.String("estimator", "recorded", "The replay time model: recorded, roofline or one.")
var noReplay = flag.Bool("no-replay", false, "Skip the latency replay.")
var monitor = flag.Bool("monitor", false, "Start the akita monitor for the replay engine.")
var metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address and wait for an interrupt.")
var logLevel = flag.String("log-level", "info", "debug, info, warn or error.")

func main() {
	flag.Parse()

	cfg := loadConfig()

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	g, err := buildNetwork(cfg.Network, cfg.InputShape)
	if err != nil {
		panic(err)
	}

	elemType, _ := nodestat.ParseDType(cfg.DType)
	engine := hook.NewEngine(
		hook.WithLogger(logger),
		hook.WithBatchSize(cfg.BatchSize),
		hook.WithDType(elemType),
		hook.WithSeed(cfg.Seed),
	)
	engine.AcceptHook(hook.NewLogHook(logger))

	atexit.Register(func() {
		engine.Detach(g)
	})

	start := time.Now()
	err = engine.Attach(g, cfg.InputShape)
	if err != nil {
		atexit.Fatal(err)
	}
	logger.Info("profiled graph",
		"network", cfg.Network,
		"leaves", len(engine.Leaves(g)),
		"elapsed", time.Since(start))

	report, err := engine.Report(g)
	if err != nil {
		atexit.Fatal(err)
	}

	writeReport(cfg, report)

	if cfg.Replay.Enabled {
		replayReport(cfg, report)
	}

	if cfg.Metrics.Addr != "" {
		serveMetrics(cfg.Metrics.Addr, report)
	}

	atexit.Exit(0)
}

// loadConfig reads the configuration file, if any, and lets the flags that
// were set on the command line override it.
func loadConfig() config.Config {
	cfg := config.Default()

	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			panic(err)
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "network":
			cfg.Network = *network
		case "input-shape":
			cfg.InputShape = parseShape(*inputShape)
		case "batch-size":
			cfg.BatchSize = *batchSize
		case "dtype":
			cfg.DType = *dtype
		case "csv":
			cfg.Output.CSV = *csvPath
		case "rollup":
			cfg.Output.RollupDepth = *rollupDepth
		case "estimator":
			cfg.Replay.Estimator = *estimator
		case "no-replay":
			cfg.Replay.Enabled = !*noReplay
		case "monitor":
			cfg.Replay.Monitor = *monitor
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	err := cfg.Validate()
	if err != nil {
		panic(err)
	}

	return cfg
}

func parseShape(str string) []int {
	tokens := strings.Split(str, ",")
	shape := make([]int, 0, len(tokens))

	for _, token := range tokens {
		d, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil {
			panic(fmt.Errorf("invalid input shape %q: %w", str, err))
		}

		shape = append(shape, d)
	}

	return shape
}

func writeReport(cfg config.Config, report nodestat.Report) {
	if cfg.Output.Table {
		fmt.Println(registry.FormatTable(report.Entries, report.Totals))
	}

	if cfg.Output.RollupDepth > 0 {
		rolled := registry.Rollup(report, cfg.Output.RollupDepth)
		fmt.Println(registry.FormatTable(rolled, report.Totals))
	}

	if cfg.Output.CSV != "" {
		writer := nodestat.ReportWriter{Path: cfg.Output.CSV}
		err := writer.Write(report)
		if err != nil {
			atexit.Fatal(err)
		}

		slog.Info("report written", "path", cfg.Output.CSV)
	}
}

func replayReport(cfg config.Config, report nodestat.Report) {
	engine := sim.NewSerialEngine()

	if cfg.Replay.Monitor {
		m := monitoring.NewMonitor()
		m.RegisterEngine(engine)
		m.StartServer()
	}

	timings, err := replay.Simulate(engine, report, newTimeEstimator(cfg.Replay))
	if err != nil {
		atexit.Fatal(err)
	}

	for _, t := range timings {
		slog.Debug("replayed leaf",
			"path", t.Path,
			"start", float64(t.Start),
			"end", float64(t.End))
	}

	fmt.Printf("Estimated execution time ms, %.10f\n", engine.CurrentTime()*1000)
}

func newTimeEstimator(cfg config.ReplayConfig) timemodel.TimeEstimator {
	switch cfg.Estimator {
	case "one":
		return &timemodel.AlwaysOneTimeEstimator{}
	case "roofline":
		return &timemodel.RooflineTimeEstimator{
			PeakFlopsPerSec:      cfg.PeakGFlops * 1e9,
			BandwidthBytesPerSec: cfg.BandwidthGBps * 1e9,
			LaunchOverheadInSec:  cfg.LaunchOverheadUs * 1e-6,
		}
	default:
		return &timemodel.RecordedTimeEstimator{}
	}
}

func serveMetrics(addr string, report nodestat.Report) {
	collector := exporter.NewCollector("nodestat")
	collector.Update(report)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		fmt.Println(http.ListenAndServe(addr, mux))
	}()

	slog.Info("serving metrics", "addr", addr)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
}
