// Command rkradar wires a full Radar against either a synthetic or a
// serial-backed hardware delegate set, writes completed sweeps to disk as
// NetCDF and indexes them in a catalog.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/boonleng/radarkit/core"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to a radarkit.conf-style descriptor file. Defaults built in if omitted.")
		dataPath   = pflag.StringP("data-path", "D", ".", "Root directory sweep NetCDF files and the archive catalog are written under.")
		serialPort = pflag.StringP("serial", "s", "", "Serial port the transceiver is attached to. Synthetic generators are used if empty.")
		baud       = pflag.IntP("baud", "b", 115200, "Serial baud rate (only used with --serial).")
		verbosity  = pflag.IntP("verbose", "v", 1, "Verbosity level (0=warn, 1=info, 2=debug).")
		help       = pflag.Bool("help", false, "Display help text.")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rkradar wires a complete RadarKit pulse-to-ray pipeline and archives its output.\n")
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTION]...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControl commands may be piped to stdin, one per line:\n")
		fmt.Fprintf(os.Stderr, "  s <level>          set system profile 0..6\n")
		fmt.Fprintf(os.Stderr, "  f <prf>[,<sprt>]   set PRF and optional staggered-PRT ratio\n")
		fmt.Fprintf(os.Stderr, "  t w <name>         load waveform by name\n")
		fmt.Fprintf(os.Stderr, "  p ppi <el> <speed> begin a PPI scan\n")
		fmt.Fprintf(os.Stderr, "  v <level>          set verbosity\n")
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	proc := core.NewProcess(*dataPath)
	proc.SetVerbosity(*verbosity)

	desc := core.DefaultRadarDesc()
	if *configPath != "" {
		loaded, err := core.LoadRadarDesc(*configPath)
		if err != nil {
			proc.Errorf("load config: %v", err)
			os.Exit(1)
		}
		desc = loaded
	}

	catalog, err := core.OpenCatalog(*dataPath + "/radarkit-catalog.db")
	if err != nil {
		proc.Errorf("open catalog: %v", err)
		os.Exit(1)
	}
	defer catalog.Close()

	waveforms := map[string]*core.Waveform{
		"impulse": {
			Name: "impulse",
			Anchors: []core.FilterAnchor{{
				InputOrigin: 0, OutputOrigin: 0, MaxDataLength: desc.PulseGateCapacity,
				SubCarrierFrequency: 2.8e9, SensitivityGain: 0,
				Taps: []complex128{1},
			}},
		},
	}

	emit := func(r *core.Ray) {
		proc.Infof("ray %d ready: %d gates", r.Header.ID, r.Header.GateCount)
	}

	var lastConfig core.Config
	sink := func(sweep *core.Sweep) {
		paths, err := core.WriteSweepFiles(*dataPath, desc.Prefix, sweep, desc, lastConfig)
		if err != nil {
			proc.Errorf("write sweep: %v", err)
			return
		}
		for _, p := range paths {
			if err := catalog.RecordSweepFile(p, sweep, ""); err != nil {
				proc.Errorf("record sweep file: %v", err)
			}
		}
		proc.Infof("sweep %s archived: %d files", sweep.ID, len(paths))
	}

	radar, err := core.NewRadar(desc, proc, waveforms, emit, sink)
	if err != nil {
		proc.Errorf("new radar: %v", err)
		os.Exit(1)
	}

	if *serialPort != "" {
		radar.Transceiver = core.NewSerialTransceiver(*serialPort, *baud)
	} else {
		radar.Transceiver = core.NewSyntheticTransceiver(1000, desc.PulseGateCapacity)
		radar.Pedestal = core.NewSyntheticPedestal(36, 0.5)
	}

	cfg := core.NewConfigBuilder(nil).Apply(
		core.ConfigUpdate{Key: core.ConfigKeyPRF, Floats: []float64{1000}},
		core.ConfigUpdate{Key: core.ConfigKeyWaveformName, Str: "impulse"},
		core.ConfigUpdate{Key: core.ConfigKeySNRThreshold, Float: 3},
		core.ConfigUpdate{Key: core.ConfigKeySQIThreshold, Float: 0.05},
		core.ConfigUpdate{Key: core.ConfigKeyGateSizeMeters, Float: 150},
		core.ConfigUpdate{Key: core.ConfigKeyPulseToRayRatio, Float: 1},
		core.ConfigUpdate{Key: core.ConfigKeyFilterCal, Cal: []core.FilterCalibration{{}}},
	).Build()
	lastConfig = cfg
	radar.ConfigPublisher.Publish(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := radar.Start(ctx); err != nil {
		proc.Errorf("start radar: %v", err)
		os.Exit(1)
	}

	command := core.NewCommand(radar)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			reply, err := command.Dispatch(scanner.Text())
			if err != nil {
				proc.Warnf("command: %v", err)
				continue
			}
			fmt.Println(reply)
		}
	}()

	<-ctx.Done()
	radar.Stop()
}
