// Command rproc-sim registers and runs a single simulated remote
// processor end to end: it loads a firmware image from disk through
// rproc's full async-load pipeline, prints diagnostics once running, and
// releases cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/behrlich/rproc"
	"github.com/behrlich/rproc/internal/logging"
	"github.com/behrlich/rproc/sim"
)

func main() {
	var (
		fwPath     = flag.String("firmware", "", "path to a firmware image file (required)")
		name       = flag.String("name", "sim0", "processor name to register")
		memSizeStr = flag.String("memsize", "16M", "size of the simulated processor memory space (e.g., 16M, 256K)")
		verbose    = flag.Bool("v", false, "verbose (debug) logging")
	)
	flag.Parse()

	if *fwPath == "" {
		fmt.Fprintln(os.Stderr, "rproc-sim: -firmware is required")
		os.Exit(2)
	}

	memSize, err := parseSize(*memSizeStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rproc-sim: invalid -memsize %q: %v\n", *memSizeStr, err)
		os.Exit(2)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	dir, file := filepath.Split(*fwPath)
	if dir == "" {
		dir = "."
	}

	mem := sim.NewMemory(memSize)
	cfg := rproc.DefaultConfig()
	cfg.Logger = logger
	cfg.Fetcher = sim.NewFileFetcher(dir)
	cfg.Mapper = sim.NewMapper(mem)

	registry := rproc.NewRegistry(cfg)
	backend := sim.NewBackend()

	if err := registry.Register(*name, rproc.Ops{Backend: backend, Firmware: file}); err != nil {
		logger.Error("register failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("acquiring processor", "name", *name, "firmware", file)
	h, err := registry.Get(ctx, *name)
	if err != nil {
		logger.Error("get failed", "error", err)
		os.Exit(1)
	}

	deadline := time.Now().Add(5 * time.Second)
	var diag *rproc.Diagnostics
	for time.Now().Before(deadline) {
		diag, err = registry.Diagnostics(*name)
		if err != nil {
			logger.Error("diagnostics failed", "error", err)
			os.Exit(1)
		}
		if diag.State == rproc.StateRunning || diag.State == rproc.StateOffline {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if diag.State != rproc.StateRunning {
		logger.Error("processor did not reach running state", "state", diag.State.String())
		registry.Put(h)
		os.Exit(1)
	}

	logger.Info("processor running", "name", *name, "bootAddr", fmt.Sprintf("%#x", backend.BootAddr()))
	fmt.Printf("processor %q running, boot address %#x\n", *name, backend.BootAddr())
	if len(diag.Trace0) > 0 {
		fmt.Printf("trace0: %q\n", rproc.TraceText(diag.Trace0))
	}
	if len(diag.Trace1) > 0 {
		fmt.Printf("trace1: %q\n", rproc.TraceText(diag.Trace1))
	}
	fmt.Println("press Ctrl+C to release and stop...")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal, releasing processor")
	if err := registry.Put(h); err != nil {
		logger.Error("put failed", "error", err)
		os.Exit(1)
	}
	logger.Info("processor released")
}

// parseSize parses a size string like "16M", "1G", "512K".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "G")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
