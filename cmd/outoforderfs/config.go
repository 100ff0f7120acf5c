package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vi/outoforderfs/internal/bytesize"
	"github.com/vi/outoforderfs/pkg/blockfile"
)

// Config holds the parsed and validated command-line arguments. Every
// field is mandatory and positional — there is no flag library involved,
// since every token the CLI accepts is required and order-sensitive.
type Config struct {
	SourcePath     string
	MountPath      string
	BlockSize      int
	Delay          blockfile.DelayRange
	MaxDirtyBlocks int
}

// argNames documents the exact positional order, used both for parsing
// and for the usage banner. mindelay_ms is not a CLI argument: spec.md §6
// fixes it at 0, so the grammar carries only five tokens after argv[0].
var argNames = []string{
	"source_file",
	"mountpoint_file",
	"blocksize_bytes",
	"maxdelay_ms",
	"maxdirtyblocks",
}

// parseArgs validates args (os.Args[1:]) against the fixed five-token
// positional grammar and returns the resulting Config. mindelay_ms is
// always 0; the minimum commit delay is not configurable.
func parseArgs(args []string) (Config, error) {
	if len(args) != len(argNames) {
		return Config{}, fmt.Errorf("expected %d arguments, got %d", len(argNames), len(args))
	}

	sourcePath := args[0]
	mountPath := args[1]

	// blocksize_bytes accepts both plain integers and human-readable sizes
	// (e.g. "4Ki", "1Mi"), the same grammar the teacher config package uses
	// for on-disk size settings.
	blockSizeBytes, err := bytesize.ParseByteSize(args[2])
	if err != nil || blockSizeBytes == 0 {
		return Config{}, fmt.Errorf("blocksize_bytes must be a positive size (e.g. 4096 or 4Ki), got %q", args[2])
	}
	blockSize := int(blockSizeBytes.Int64())

	maxDelayMs, err := strconv.Atoi(args[3])
	if err != nil || maxDelayMs < 0 {
		return Config{}, fmt.Errorf("maxdelay_ms must be a non-negative integer, got %q", args[3])
	}

	maxDirty, err := strconv.Atoi(args[4])
	if err != nil || maxDirty <= 0 {
		return Config{}, fmt.Errorf("maxdirtyblocks must be a positive integer, got %q", args[4])
	}

	return Config{
		SourcePath: sourcePath,
		MountPath:  mountPath,
		BlockSize:  blockSize,
		Delay: blockfile.DelayRange{
			Min: 0,
			Max: time.Duration(maxDelayMs) * time.Millisecond,
		},
		MaxDirtyBlocks: maxDirty,
	}, nil
}
