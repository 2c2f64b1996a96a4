// SPDX-License-Identifier: MIT
/*
Package chain assembles the equaliser, dynamics and LFO stages into a single
mono effects chain driven by a preset.

A Chain is used by exactly one render goroutine, which calls the Process
methods, and any number of control goroutines, which call everything else.
Control methods are serialised by a mutex the render path never takes. Each
accepted change is published as an immutable snapshot through an atomic
pointer; the render goroutine picks it up at the start of the next sample or
block, so a sample is always processed with one complete configuration.

Everything that allocates happens on the control side. The render side only
copies into memory that arrived with a snapshot.
*/
package chain

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"voicefx/internal/dsp"
	"voicefx/internal/log"
	"voicefx/internal/preset"
)

var (
	// ErrInvalidSampleRate is returned by Configure for non-finite or
	// non-positive rates.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrNoPreset is returned by the LFO setters before any preset is set.
	ErrNoPreset = errors.New("no preset applied")
)

// State is the lifecycle state of a Chain.
type State int32

const (
	// Unconfigured chains have no sample rate and pass audio through.
	Unconfigured State = iota
	// Configured chains have valid coefficients.
	Configured
	// Flushed chains have a pending history reset that the render side
	// applies before its next sample.
	Flushed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Flushed:
		return "flushed"
	default:
		return "unknown"
	}
}

// settings is one published configuration. It is never modified after
// publication, except that bank and delay become owned by the render side
// once it adopts them.
type settings struct {
	sampleRate float64
	preset     preset.Preset

	filter dsp.FilterCoefficients
	bank   []dsp.Biquad

	dynamics dsp.DynamicsCoefficients
	delay    []float64

	lfo dsp.LFOParams
}

// Chain is the effects chain. Create one with New.
type Chain struct {
	log *log.Logger

	// control side, guarded by mu
	mu         sync.Mutex
	sampleRate float64
	preset     preset.Preset
	hasPreset  bool

	snapshot atomic.Pointer[settings]
	state    atomic.Int32
	flushGen atomic.Uint64
	bypass   atomic.Bool

	// render side
	active    *settings
	flushSeen uint64
	filter    *dsp.FilterStage
	dynamics  *dsp.Dynamics
	lfo       *dsp.LFO

	meter meters
}

// Option configures a Chain in New.
type Option func(*options)

type options struct {
	preset     *preset.Preset
	sampleRate float64
	bypass     bool
}

// WithPreset applies p before the chain is returned.
func WithPreset(p preset.Preset) Option {
	return func(o *options) { o.preset = &p }
}

// WithSampleRate configures the chain for fs before it is returned.
func WithSampleRate(fs float64) Option {
	return func(o *options) { o.sampleRate = fs }
}

// WithBypass starts the chain bypassed.
func WithBypass(on bool) Option {
	return func(o *options) { o.bypass = on }
}

// New returns a chain. Without options it is Unconfigured, has no preset
// and passes audio through unchanged.
func New(opts ...Option) (*Chain, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Chain{
		log:      log.Named("chain"),
		filter:   dsp.NewFilterStage(),
		dynamics: dsp.NewDynamics(),
		lfo:      dsp.NewLFO(0),
	}
	c.meter.reset()
	c.bypass.Store(o.bypass)

	if o.preset != nil {
		if err := c.ApplyPreset(*o.preset); err != nil {
			return nil, err
		}
	}
	if o.sampleRate != 0 {
		if err := c.Configure(o.sampleRate); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Configure sets the sample rate and recomputes every rate dependent
// coefficient, reapplying the current preset. Stage history is kept.
func (c *Chain) Configure(sampleRate float64) error {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRate, sampleRate)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sampleRate = sampleRate
	if c.hasPreset {
		c.publish(c.preset)
	}
	// a pending flush stays visible until the render side applies it
	c.state.CompareAndSwap(int32(Unconfigured), int32(Configured))
	c.log.Debugf("configured at %g Hz", sampleRate)
	return nil
}

// ApplyPreset validates p and makes it the active configuration. On error
// nothing changes. History and LFO phase are never reset. Before Configure
// the preset is stored and takes effect once a sample rate is known.
func (c *Chain) ApplyPreset(p preset.Preset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(p)
}

func (c *Chain) applyLocked(p preset.Preset) error {
	if err := p.Validate(); err != nil {
		c.log.Debugf("rejected preset %q: %v", p.Name, err)
		return fmt.Errorf("apply preset %q: %w", p.Name, err)
	}
	c.preset = p.Clone()
	c.hasPreset = true
	if c.sampleRate > 0 {
		c.publish(c.preset)
	}
	c.log.Debugf("applied preset %q", p.Name)
	return nil
}

// publish designs every stage for p and swaps the snapshot. Caller holds mu.
func (c *Chain) publish(p preset.Preset) {
	fs := c.sampleRate
	fc := dsp.DesignFilter(fs, filterParams(p.EQ))
	dc := dsp.DesignDynamics(fs, dynamicsParams(p.Dynamics))

	c.snapshot.Store(&settings{
		sampleRate: fs,
		preset:     p,
		filter:     fc,
		bank:       dsp.NewPeakBank(fc),
		dynamics:   dc,
		delay:      make([]float64, dc.LookaheadSamples),
		lfo:        lfoParams(p.Modulation),
	})
}

// Flush clears all stage history before the next processed sample.
// Configuration is untouched. Calling it repeatedly is harmless.
func (c *Chain) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CompareAndSwap(int32(Configured), int32(Flushed))
	c.flushGen.Add(1)
}

// SetBypass routes audio around the whole chain, limiter included.
func (c *Chain) SetBypass(on bool) {
	c.bypass.Store(on)
}

// SetLFOEnabled re-applies the current preset with modulation switched.
func (c *Chain) SetLFOEnabled(on bool) error {
	return c.edit(func(p preset.Preset) preset.Preset { return p.WithLFOEnabled(on) })
}

// SetLFORateHz re-applies the current preset with a new modulation rate.
func (c *Chain) SetLFORateHz(hz float64) error {
	return c.edit(func(p preset.Preset) preset.Preset { return p.WithLFORate(hz) })
}

// SetLFODepthDB re-applies the current preset with a new modulation depth.
func (c *Chain) SetLFODepthDB(db float64) error {
	return c.edit(func(p preset.Preset) preset.Preset { return p.WithLFODepth(db) })
}

// SetModulation re-applies the current preset with the modulation returned
// by fn. fn sees the modulation of the preset current under the control
// lock, so concurrent ApplyPreset calls are never overwritten.
func (c *Chain) SetModulation(fn func(preset.Modulation) preset.Modulation) error {
	return c.edit(func(p preset.Preset) preset.Preset { return p.WithModulation(fn(p.Modulation)) })
}

func (c *Chain) edit(fn func(preset.Preset) preset.Preset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasPreset {
		return ErrNoPreset
	}
	return c.applyLocked(fn(c.preset))
}

// State returns the lifecycle state.
func (c *Chain) State() State {
	return State(c.state.Load())
}

// Preset returns a copy of the current preset, if any.
func (c *Chain) Preset() (preset.Preset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasPreset {
		return preset.Preset{}, false
	}
	return c.preset.Clone(), true
}

// SampleRate returns the configured rate, or 0 before Configure.
func (c *Chain) SampleRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}

// Bypassed reports whether the chain is bypassed.
func (c *Chain) Bypassed() bool {
	return c.bypass.Load()
}

// FilterCoefficients returns the published equaliser coefficients. ok is
// false until both a sample rate and a preset are known.
func (c *Chain) FilterCoefficients() (coef dsp.FilterCoefficients, ok bool) {
	s := c.snapshot.Load()
	if s == nil {
		return dsp.FilterCoefficients{}, false
	}
	return s.filter.Clone(), true
}

// ResponseDB returns the designed equaliser magnitude at freqHz, or 0 when
// nothing is published.
func (c *Chain) ResponseDB(freqHz float64) float64 {
	s := c.snapshot.Load()
	if s == nil {
		return 0
	}
	return s.filter.ResponseDB(freqHz, s.sampleRate)
}

// Latency returns the limiter look-ahead delay in samples.
func (c *Chain) Latency() int {
	s := c.snapshot.Load()
	if s == nil {
		return 0
	}
	return s.dynamics.LookaheadSamples - 1
}

func filterParams(eq preset.EQ) dsp.FilterParams {
	p := dsp.FilterParams{
		LowShelf:  dsp.ShelfParams{FcHz: eq.LowShelf.FcHz, GainDB: eq.LowShelf.GainDB},
		Peaks:     make([]dsp.PeakParams, len(eq.Peaks)),
		HighShelf: dsp.ShelfParams{FcHz: eq.HighShelf.FcHz, GainDB: eq.HighShelf.GainDB},
	}
	for i, pk := range eq.Peaks {
		p.Peaks[i] = dsp.PeakParams{FcHz: pk.FcHz, GainDB: pk.GainDB, Q: pk.Q}
	}
	return p
}

func dynamicsParams(d preset.Dynamics) dsp.DynamicsParams {
	p := dsp.DynamicsParams{
		PregainDB: d.PregainDB,
		Limiter: dsp.LimiterParams{
			CeilingDBFS: d.Limiter.CeilingDBFS,
			LookaheadMs: d.Limiter.LookaheadMs,
			ReleaseMs:   d.Limiter.ReleaseMs,
		},
	}
	if comp := d.Compressor; comp != nil {
		p.Compressor = dsp.CompressorParams{
			Enabled:       comp.Enabled,
			Ratio:         comp.Ratio,
			ThresholdDBFS: comp.ThresholdDBFS,
			AttackMs:      comp.AttackMs,
			ReleaseMs:     comp.ReleaseMs,
		}
	}
	return p
}

func lfoParams(m preset.Modulation) dsp.LFOParams {
	return dsp.LFOParams{
		Enabled: m.Enabled,
		RateHz:  m.RateHz,
		DepthDB: m.DepthDB,
		Mode:    m.Mode,
	}
}
