// Command outoforderfs mirrors a source file at a FUSE mountpoint, applying
// writes to the source file at randomized times and in randomized order —
// a tool for exercising what higher-level filesystems and databases do
// when storage is pulled out from under them mid-write.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vi/outoforderfs/internal/fuseadapter"
	"github.com/vi/outoforderfs/internal/logger"
	"github.com/vi/outoforderfs/pkg/metrics"
	promrecorder "github.com/vi/outoforderfs/pkg/metrics/prometheus"
	"github.com/vi/outoforderfs/pkg/mirror"
)

const usage = `outoforderfs - a delayed, out-of-order mirroring FUSE filesystem

Usage:
  outoforderfs source_file mountpoint_file blocksize_bytes maxdelay_ms maxdirtyblocks

Arguments:
  source_file       Existing file whose bytes are mirrored
  mountpoint_file   Path at which the mirrored file is exposed via FUSE
  blocksize_bytes   Fixed block size in bytes
  maxdelay_ms       Maximum randomized commit delay, in milliseconds (minimum is always 0)
  maxdirtyblocks    Maximum number of blocks held dirty before writers block

Example:
  outoforderfs disk.img /mnt/disk.img 4096 2000 64

On SIGINT or SIGTERM, the filesystem unmounts and any blocks still waiting
to be committed are thrown away — not flushed — so the source file ends up
exactly as out-of-order and incomplete as a real mid-write power loss would
leave it.

If OUTOFORDERFS_METRICS_ADDR is set, Prometheus metrics are served at
GET /metrics on that address (e.g. "127.0.0.1:9090"). This is an optional
environment variable, not a positional argument — it does not change the
five-argument grammar above.
`

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprint(os.Stderr, usage)
		fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: "info", Format: "text", Output: "stderr"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	recorder := metrics.Recorder(metrics.Noop{})
	if addr := os.Getenv("OUTOFORDERFS_METRICS_ADDR"); addr != "" {
		registry := prometheus.NewRegistry()
		recorder = promrecorder.NewRecorder(registry)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics server exited", logger.Err(err))
			}
		}()
		logger.Info("metrics server listening", logger.Path(addr))
	}

	m, err := mirror.Open(mirror.Config{
		SourcePath:     cfg.SourcePath,
		BlockSize:      cfg.BlockSize,
		MaxDirtyBlocks: cfg.MaxDirtyBlocks,
		Delay:          cfg.Delay,
		Recorder:       recorder,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	m.Start()

	server, err := fuseadapter.Mount(cfg.MountPath, m.Facade(), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: mounting %s: %v\n", cfg.MountPath, err)
		m.Stop()
		m.Close()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverDone := make(chan struct{})
	go func() {
		server.Wait()
		close(serverDone)
	}()

	select {
	case <-sigCh:
		signal.Stop(sigCh)
		_ = server.Unmount()
		<-serverDone
	case <-serverDone:
	}

	residual := m.Stop()
	if err := m.Close(); err != nil {
		logger.Error("error closing source file", logger.Err(err))
	}

	fmt.Printf("Throwing away %d dirty blocks.\n", residual)
}
