package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsValid(t *testing.T) {
	cfg, err := parseArgs([]string{"disk.img", "/mnt/disk.img", "4096", "2000", "64"})
	require.NoError(t, err)

	assert.Equal(t, "disk.img", cfg.SourcePath)
	assert.Equal(t, "/mnt/disk.img", cfg.MountPath)
	assert.Equal(t, 4096, cfg.BlockSize)
	assert.Equal(t, time.Duration(0), cfg.Delay.Min)
	assert.Equal(t, 2000*time.Millisecond, cfg.Delay.Max)
	assert.Equal(t, 64, cfg.MaxDirtyBlocks)
}

func TestParseArgsAcceptsHumanReadableBlockSize(t *testing.T) {
	cfg, err := parseArgs([]string{"disk.img", "/mnt/disk.img", "4Ki", "100", "4"})
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.BlockSize)
}

func TestParseArgsWrongCount(t *testing.T) {
	_, err := parseArgs([]string{"disk.img", "/mnt/disk.img"})
	assert.Error(t, err)

	_, err = parseArgs([]string{"a", "b", "c", "d", "e", "f"})
	assert.Error(t, err)
}

func TestParseArgsRejectsNonPositiveBlockSize(t *testing.T) {
	_, err := parseArgs([]string{"disk.img", "/mnt/disk.img", "0", "100", "4"})
	assert.Error(t, err)

	_, err = parseArgs([]string{"disk.img", "/mnt/disk.img", "-1", "100", "4"})
	assert.Error(t, err)
}

func TestParseArgsRejectsNegativeMaxDelay(t *testing.T) {
	_, err := parseArgs([]string{"disk.img", "/mnt/disk.img", "4096", "-1", "4"})
	assert.Error(t, err)
}

func TestParseArgsRejectsNonPositiveMaxDirtyBlocks(t *testing.T) {
	_, err := parseArgs([]string{"disk.img", "/mnt/disk.img", "4096", "100", "0"})
	assert.Error(t, err)
}

func TestParseArgsRejectsNonNumericTokens(t *testing.T) {
	_, err := parseArgs([]string{"disk.img", "/mnt/disk.img", "big", "100", "4"})
	assert.Error(t, err)
}
