package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// runConfig is the optional YAML config file layout. A string or numeric
// field is overridden by its flag when that flag is non-empty or non-zero;
// loop and highAccuracy are overridden only by a flag set to true;
// trackStreamStats always takes the -track-stream-stats value (default
// true), so the config file's value for it has no effect.
type runConfig struct {
	Iface            string `yaml:"iface"`
	Pcap             string `yaml:"pcap"`
	Loop             bool   `yaml:"loop"`
	LoopDelaySec     int64  `yaml:"loopDelaySec"`
	HighAccuracy     bool   `yaml:"highAccuracy"`
	TrackStreamStats bool   `yaml:"trackStreamStats"`
	ControlAddr      string `yaml:"controlAddr"`
	StreamStatsOut   string `yaml:"streamStatsOut"`
}

func loadConfig(path string) (runConfig, error) {
	var cfg runConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
