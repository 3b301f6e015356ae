// Command rkgen drives a Radar with synthetic pulse/position generators
// instead of hardware delegates, so the pulse-to-ray moment pipeline can be
// exercised without a transceiver or pedestal attached.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/boonleng/radarkit/core"
)

func main() {
	var (
		prfHz     = pflag.Float64P("prf", "f", 1000, "Pulse repetition frequency in Hz.")
		gateCount = pflag.IntP("gates", "g", 512, "Gate count per pulse.")
		rateDeg   = pflag.Float64P("rate", "r", 36, "Antenna rotation rate in degrees/second.")
		duration  = pflag.DurationP("duration", "d", 10*time.Second, "How long to run before exiting.")
		verbosity = pflag.IntP("verbose", "v", 1, "Verbosity level (0=warn, 1=info, 2=debug).")
		help      = pflag.Bool("help", false, "Display help text.")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rkgen drives the RadarKit pulse-to-ray pipeline with a synthetic transceiver and pedestal.\n")
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTION]...\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	proc := core.NewProcess("")
	proc.SetVerbosity(*verbosity)

	desc := core.DefaultRadarDesc()
	desc.PulseGateCapacity = *gateCount

	var rayCount, sweepCount int
	emit := func(r *core.Ray) {
		rayCount++
		proc.Infof("ray %d: az %.2f->%.2f el %.2f->%.2f gates=%d", r.Header.ID,
			r.Header.StartAzimuth, r.Header.EndAzimuth,
			r.Header.StartElevation, r.Header.EndElevation, r.Header.GateCount)
	}
	sink := func(s *core.Sweep) {
		sweepCount++
		proc.Infof("sweep %s: %d rays, complete=%v", s.ID, len(s.Rays), s.Complete)
	}

	waveforms := map[string]*core.Waveform{
		"impulse": {
			Name: "impulse",
			Anchors: []core.FilterAnchor{{
				InputOrigin: 0, OutputOrigin: 0, MaxDataLength: *gateCount,
				SubCarrierFrequency: 2.8e9, SensitivityGain: 0,
				Taps: []complex128{1},
			}},
		},
	}

	radar, err := core.NewRadar(desc, proc, waveforms, emit, sink)
	if err != nil {
		proc.Errorf("new radar: %v", err)
		os.Exit(1)
	}

	radar.Transceiver = core.NewSyntheticTransceiver(*prfHz, *gateCount)
	radar.Pedestal = core.NewSyntheticPedestal(*rateDeg, 0.5)

	cfg := core.NewConfigBuilder(nil).Apply(
		core.ConfigUpdate{Key: core.ConfigKeyPRF, Floats: []float64{*prfHz}},
		core.ConfigUpdate{Key: core.ConfigKeyWaveformName, Str: "impulse"},
		core.ConfigUpdate{Key: core.ConfigKeySNRThreshold, Float: 3},
		core.ConfigUpdate{Key: core.ConfigKeySQIThreshold, Float: 0.05},
		core.ConfigUpdate{Key: core.ConfigKeyGateSizeMeters, Float: 150},
		core.ConfigUpdate{Key: core.ConfigKeyPulseToRayRatio, Float: 1},
		core.ConfigUpdate{Key: core.ConfigKeyFilterCal, Cal: []core.FilterCalibration{{}}},
	).Build()
	radar.ConfigPublisher.Publish(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

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
	<-ctx.Done()
	radar.Stop()

	fmt.Printf("rkgen: %d rays, %d sweeps\n", rayCount, sweepCount)
}
