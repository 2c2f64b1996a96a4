// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"testing"
	"time"

	"voicefx/internal/chain"
)

type captureTransport struct {
	mu   sync.Mutex
	sent []any
}

func (c *captureTransport) Send(data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *captureTransport) Close() error { return nil }

func (c *captureTransport) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type fixedMeter struct{ m chain.Meter }

func (f fixedMeter) Meter() chain.Meter { return f.m }

func TestMeterPump(t *testing.T) {
	capture := &captureTransport{}
	pump := NewMeterPump(fixedMeter{chain.Meter{PeakIn: 0.5, Samples: 64}}, time.Millisecond, capture, NewLoggingTransport())
	pump.Start()
	pump.Start() // no-op

	deadline := time.Now().Add(2 * time.Second)
	for capture.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	pump.Stop()
	pump.Stop()

	// an unchanging sample count is sent once
	if n := capture.count(); n != 1 {
		t.Fatalf("sent %d envelopes, want 1", n)
	}
	env, ok := capture.sent[0].(Envelope)
	if !ok || env.Type != "meter" || env.Meter.PeakIn != 0.5 {
		t.Errorf("sent %+v", capture.sent[0])
	}
}

func TestStatusOf(t *testing.T) {
	c := newTestChain(t)
	if err := c.SetLFOEnabled(true); err != nil {
		t.Fatal(err)
	}
	c.SetBypass(true)

	s := statusOf(c)
	if s.Preset == "" || !s.Bypass || !s.LFO || s.RateHz <= 0 {
		t.Errorf("status = %+v", s)
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	if err := lt.Send(Envelope{Type: "meter"}); err != nil {
		t.Errorf("Send: %v", err)
	}
	if err := lt.Send(func() {}); err != nil {
		t.Errorf("Send(unmarshalable): %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
