package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigEmptyPathReturnsZeroValue(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, runConfig{}, cfg)
}

func TestLoadConfigParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txgend.yaml")
	const body = `
iface: eth0
pcap: capture.pcap
loop: true
loopDelaySec: 5
highAccuracy: true
trackStreamStats: false
controlAddr: ":9090"
streamStatsOut: out.csv
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, runConfig{
		Iface:            "eth0",
		Pcap:             "capture.pcap",
		Loop:             true,
		LoopDelaySec:     5,
		HighAccuracy:     true,
		TrackStreamStats: false,
		ControlAddr:      ":9090",
		StreamStatsOut:   "out.csv",
	}, cfg)
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
