// SPDX-License-Identifier: MIT
/*
Package transport publishes chain meters and accepts remote control
commands. Meter snapshots go out as JSON over WebSocket (or to the log);
the udp subpackage carries the same values as compact binary datagrams.

All control commands run on network goroutines, never on the audio
callback, and reach the chain through its control methods.
*/
package transport

import (
	"sync"
	"time"

	"voicefx/internal/chain"
	"voicefx/internal/log"
	"voicefx/internal/preset"
)

var logger = log.Named("transport")

// Transport sends meter snapshots or other events. Implementations must be
// safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// MeterSource provides the latest chain meters.
type MeterSource interface {
	Meter() chain.Meter
}

// Controller is the subset of *chain.Chain a remote client may drive.
type Controller interface {
	MeterSource
	ApplyPreset(p preset.Preset) error
	SetModulation(fn func(preset.Modulation) preset.Modulation) error
	Preset() (preset.Preset, bool)
	SetBypass(on bool)
	Bypassed() bool
	Flush()
}

// PresetLoader resolves preset names, typically a *preset.Store.
type PresetLoader interface {
	Load(name string) (preset.Preset, error)
}

var _ Controller = (*chain.Chain)(nil)
var _ PresetLoader = (*preset.Store)(nil)

// Envelope is the JSON frame sent to clients.
type Envelope struct {
	Type    string       `json:"type"`
	Meter   *chain.Meter `json:"meter,omitempty"`
	Status  *Status      `json:"status,omitempty"`
	Request string       `json:"request,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Status describes the chain's control state.
type Status struct {
	Preset  string  `json:"preset,omitempty"`
	Bypass  bool    `json:"bypass"`
	LFO     bool    `json:"lfo"`
	RateHz  float64 `json:"lfo_rate_hz"`
	DepthDB float64 `json:"lfo_depth_db"`
}

func statusOf(c Controller) *Status {
	s := &Status{Bypass: c.Bypassed()}
	if p, ok := c.Preset(); ok {
		s.Preset = p.Name
		s.LFO = p.Modulation.Enabled
		s.RateHz = p.Modulation.RateHz
		s.DepthDB = p.Modulation.DepthDB
	}
	return s
}

// MeterPump reads a MeterSource at a fixed interval and sends each
// snapshot to every transport.
type MeterPump struct {
	src        MeterSource
	interval   time.Duration
	transports []Transport

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewMeterPump creates a pump. Intervals <= 0 default to 50ms.
func NewMeterPump(src MeterSource, interval time.Duration, transports ...Transport) *MeterPump {
	if interval <= 0 {
		interval = 50 * time.Millisecond
		logger.Warnf("invalid meter interval, defaulting to %s", interval)
	}
	return &MeterPump{src: src, interval: interval, transports: transports}
}

// Start launches the pump goroutine. Calling Start on a running pump is a
// no-op.
func (p *MeterPump) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	ticker, done := p.ticker, p.done

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		var last uint64
		for {
			select {
			case <-ticker.C:
				m := p.src.Meter()
				// idle chains produce no new frames
				if m.Samples == last && last != 0 {
					continue
				}
				last = m.Samples
				p.send(Envelope{Type: "meter", Meter: &m})
			case <-done:
				return
			}
		}
	}()
}

func (p *MeterPump) send(e Envelope) {
	for _, t := range p.transports {
		if err := t.Send(e); err != nil {
			logger.Debugf("meter send: %v", err)
		}
	}
}

// Stop halts the pump and waits for its goroutine. It is safe to call more
// than once.
func (p *MeterPump) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.ticker.Stop()
	p.ticker = nil
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}
