// Command txgend drives a TxEngine end-to-end: it builds a Program from
// a recorded pcap file, sinks it onto a live interface (or, with no
// interface given, an in-memory ReplaySink for a dry run), and exposes
// the engine's lifecycle over the control-surface HTTP API while it
// runs. Modeled on the teacher's flag-driven main.go.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l2dy/ostinato/internal/clock"
	"github.com/l2dy/ostinato/internal/control"
	"github.com/l2dy/ostinato/internal/log"
	"github.com/l2dy/ostinato/internal/report"
	"github.com/l2dy/ostinato/internal/sink"
	"github.com/l2dy/ostinato/internal/stats"
	"github.com/l2dy/ostinato/internal/txengine"
	"github.com/l2dy/ostinato/internal/txprogram"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	pcapPath := flag.String("pcap", "", "Path to the pcap file to replay (Required)")
	iface := flag.String("iface", "", "Interface to send on; empty runs against an in-memory replay sink")
	loop := flag.Bool("loop", false, "Loop a -pcap program back to the start once it finishes; -synth-packets programs run once")
	loopDelaySec := flag.Int64("loop-delay", 0, "Seconds to wait between loop revolutions")
	highAccuracy := flag.Bool("high-accuracy", false, "Busy-wait instead of OS-sleep between packets")
	trackStreamStats := flag.Bool("track-stream-stats", true, "Attribute transmitted packets back to their stream guid")
	controlAddr := flag.String("control-addr", ":8080", "Address for the txengine/v1 control API; empty disables it")
	streamStatsOut := flag.String("stream-stats-out", "", "Path to write a final stream-stats CSV report; empty skips it")
	synthPackets := flag.Int("synth-packets", 0, "If set and -pcap is empty, replay this many synthetic packets instead")
	synthIntervalUsec := flag.Int64("synth-interval-usec", 1000, "Inter-packet interval for -synth-packets")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "txgend: loading config: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(&cfg, pcapPath, iface, loop, loopDelaySec, highAccuracy, trackStreamStats, controlAddr, streamStatsOut)

	if cfg.Pcap == "" && *synthPackets == 0 {
		fmt.Fprintln(os.Stderr, "txgend: one of -pcap or -synth-packets is required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := log.New()

	var program *txprogram.Program
	if cfg.Pcap != "" {
		program, err = txprogram.LoadFromPcap(cfg.Pcap, cfg.TrackStreamStats, cfg.Loop, cfg.LoopDelaySec, 0, logger)
		if err != nil {
			logger.WithError(err).Error("txgend: failed to build program from pcap")
			os.Exit(1)
		}
	} else {
		program, err = buildSyntheticProgram(*synthPackets, *synthIntervalUsec, cfg.TrackStreamStats, logger)
		if err != nil {
			logger.WithError(err).Error("txgend: failed to build synthetic program")
			os.Exit(1)
		}
	}
	logger.Infof("txgend: loaded program: %d sequences, revolution size %d", len(program.Sequences), program.PacketListSize)

	packetSink, closeSink, err := openSink(cfg.Iface, logger)
	if err != nil {
		logger.WithError(err).Error("txgend: failed to open sink")
		os.Exit(1)
	}
	defer closeSink()

	ledger := stats.NewLedger()
	ledger.Register(control.LedgerObserver())

	accuracy := clock.Low
	if cfg.HighAccuracy {
		accuracy = clock.High
	}
	engine := txengine.NewEngine(packetSink, clock.NewDelay(accuracy), ledger, logger)
	if err := engine.SetProgram(program); err != nil {
		logger.WithError(err).Error("txgend: failed to install program")
		os.Exit(1)
	}

	var server *control.Server
	if cfg.ControlAddr != "" {
		server = control.NewServer(cfg.ControlAddr, engine, ledger, logger)
		server.Start()
		defer server.Stop()
	}

	if err := engine.Start(); err != nil {
		logger.WithError(err).Error("txgend: failed to start engine")
		os.Exit(1)
	}
	logger.Info("txgend: engine started")

	waitForStopSignal(engine, logger)

	logger.Infof("txgend: engine finished in %.3fs", engine.LastTxDuration())
	writeStreamStatsReport(cfg.StreamStatsOut, engine, logger)
}

func applyFlagOverrides(cfg *runConfig, pcapPath, iface *string, loop *bool, loopDelaySec *int64, highAccuracy, trackStreamStats *bool, controlAddr, streamStatsOut *string) {
	if *pcapPath != "" {
		cfg.Pcap = *pcapPath
	}
	if *iface != "" {
		cfg.Iface = *iface
	}
	if *loop {
		cfg.Loop = true
	}
	if *loopDelaySec != 0 {
		cfg.LoopDelaySec = *loopDelaySec
	}
	if *highAccuracy {
		cfg.HighAccuracy = true
	}
	cfg.TrackStreamStats = *trackStreamStats
	if *controlAddr != "" {
		cfg.ControlAddr = *controlAddr
	}
	if *streamStatsOut != "" {
		cfg.StreamStatsOut = *streamStatsOut
	}
}

func openSink(iface string, logger log.Logger) (txengine.PacketSink, func(), error) {
	if iface == "" {
		logger.Warn("txgend: no -iface given, running against an in-memory replay sink")
		return sink.NewReplaySink(), func() {}, nil
	}
	live, err := sink.NewLiveSink(iface, 65535, 30*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return live, live.Close, nil
}

// waitForStopSignal blocks until the engine finishes on its own or the
// process receives an interrupt/termination signal, in which case it
// requests a cancellation and waits for the run loop to unwind.
func waitForStopSignal(engine *txengine.Engine, logger log.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		for engine.IsRunning() {
			time.Sleep(50 * time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-sigCh:
		logger.Info("txgend: received stop signal, cancelling run")
		engine.Stop()
	}
}

func writeStreamStatsReport(path string, engine *txengine.Engine, logger log.Logger) {
	if path == "" {
		return
	}
	w, err := report.NewStreamStatsWriter(path)
	if err != nil {
		logger.WithError(err).Error("txgend: failed to open stream-stats report")
		return
	}
	defer w.Close()

	if err := w.WriteAll(engine.StreamStats()); err != nil {
		logger.WithError(err).Error("txgend: failed to write stream-stats report")
	}
}
