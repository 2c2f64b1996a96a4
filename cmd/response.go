// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
	"github.com/spf13/cobra"

	"voicefx/internal/analysis"
	"voicefx/internal/chain"
	"voicefx/internal/preset"
	"voicefx/internal/tui"
)

// Probe tones sit well below the compressor threshold and limiter ceiling
// so the measurement sees only the equaliser and pre-gain.
const (
	probeAmplitude = 0.01
	probeDuration  = 0.5 // seconds
)

type responsePoint struct {
	FreqHz     float64
	DesignedDB float64 // equaliser plus pre-gain
	MeasuredDB float64
}

func newResponseCmd(a *app) *cobra.Command {
	var (
		presetRef  string
		sampleRate float64
	)

	cmd := &cobra.Command{
		Use:   "response [NAME|FILE.json]",
		Short: "Compare the designed and measured chain response at reference frequencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := a.cfg.Chain.Preset
			if presetRef != "" {
				ref = presetRef
			}
			if len(args) == 1 {
				ref = args[0]
			}
			p, err := a.loadPreset(ref)
			if err != nil {
				return err
			}
			if sampleRate <= 0 {
				sampleRate = a.cfg.Audio.SampleRate
			}
			points, err := measureResponse(p, sampleRate, tui.ReferenceFrequencies)
			if err != nil {
				return err
			}
			return writeResponse(cmd.OutOrStdout(), p, sampleRate, points)
		},
	}

	cmd.Flags().StringVarP(&presetRef, "preset", "p", "", "Preset name or .json path")
	cmd.Flags().Float64Var(&sampleRate, "sample-rate", 0, "Sample rate in Hz (default: audio.sample_rate)")
	return cmd
}

// measureResponse drives a fresh chain with a quiet tone at every
// frequency below Nyquist and reports the steady-state gain. Modulation is
// disabled for the measurement.
func measureResponse(p preset.Preset, sampleRate float64, freqs []float64) ([]responsePoint, error) {
	c, err := chain.New(chain.WithPreset(p.WithLFOEnabled(false)))
	if err != nil {
		return nil, err
	}
	if err := c.Configure(sampleRate); err != nil {
		return nil, err
	}

	gen := signal.NewGenerator(core.WithSampleRate(sampleRate))
	n := int(probeDuration * sampleRate)
	out := make([]float64, n)
	points := make([]responsePoint, 0, len(freqs))
	for _, f := range freqs {
		if f >= sampleRate/2 {
			continue
		}
		in, err := gen.Sine(f, probeAmplitude, n)
		if err != nil {
			return nil, err
		}
		copy(out, in)
		c.Flush()
		c.ProcessBlock(out)

		// skip filter settling and limiter delay
		half := n / 2
		points = append(points, responsePoint{
			FreqHz:     f,
			DesignedDB: c.ResponseDB(f) + p.Dynamics.PregainDB,
			MeasuredDB: analysis.ToneGainDB(in[half:], out[half:], f, sampleRate),
		})
	}
	return points, nil
}

func writeResponse(w io.Writer, p preset.Preset, sampleRate float64, points []responsePoint) error {
	if _, err := fmt.Fprintf(w, "%s @ %.0f Hz\n%10s %10s %10s %8s\n",
		p.Name, sampleRate, "freq", "designed", "measured", "delta"); err != nil {
		return err
	}
	for _, pt := range points {
		delta := pt.MeasuredDB - pt.DesignedDB
		if math.IsNaN(delta) {
			delta = 0
		}
		if _, err := fmt.Fprintf(w, "%7.0f Hz %+7.2f dB %+7.2f dB %+6.2f dB\n",
			pt.FreqHz, pt.DesignedDB, pt.MeasuredDB, delta); err != nil {
			return err
		}
	}
	return nil
}
