// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"math"
	"net"
	"testing"
	"time"

	"voicefx/internal/chain"
)

type fixedMeter struct{ m chain.Meter }

func (f fixedMeter) Meter() chain.Meter { return f.m }

func TestPacket_RoundTrip(t *testing.T) {
	t.Parallel()

	m := chain.Meter{PeakIn: 0.9, PeakOut: 0.8, LimiterGain: 0.5, CompressorGain: 1}
	b := AppendPacket(nil, 7, 123456789, m)
	if len(b) != PacketSize {
		t.Fatalf("packet is %d bytes, want %d", len(b), PacketSize)
	}

	p, err := DecodePacket(b)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Seq != 7 || p.Timestamp != 123456789 {
		t.Errorf("header = %d, %d", p.Seq, p.Timestamp)
	}
	if p.PeakIn != float32(0.9) || p.PeakOut != float32(0.8) || p.LimiterGain != 0.5 || p.CompressorGain != 1 {
		t.Errorf("values = %+v", p)
	}
	if want := 20 * math.Log10(0.5); math.Abs(float64(p.GainReductionDB)-want) > 1e-5 {
		t.Errorf("GainReductionDB = %g, want %g", p.GainReductionDB, want)
	}
}

func TestDecodePacket_Malformed(t *testing.T) {
	t.Parallel()

	good := AppendPacket(nil, 1, 1, chain.Meter{})
	tests := map[string][]byte{
		"empty":       nil,
		"short":       good[:10],
		"truncated":   good[:len(good)-1],
		"wrong count": append(append([]byte{}, good[:12]...), append([]byte{0, 9}, good[14:]...)...),
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodePacket(b); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPublisher_SendsPackets(t *testing.T) {
	t.Parallel()

	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	sender, err := NewSender(ln.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	pub, err := NewPublisher(time.Millisecond, sender, fixedMeter{chain.Meter{PeakOut: 0.25, LimiterGain: 1, CompressorGain: 1}})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	pub.Start()
	defer pub.Close()

	buf := make([]byte, 512)
	var last uint32
	for range 3 {
		ln.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := ln.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		p, err := DecodePacket(buf[:n])
		if err != nil {
			t.Fatalf("DecodePacket: %v", err)
		}
		if p.Seq <= last {
			t.Errorf("sequence went from %d to %d", last, p.Seq)
		}
		last = p.Seq
		if p.PeakOut != 0.25 || p.GainReductionDB != 0 {
			t.Errorf("packet = %+v", p)
		}
	}

	if err := pub.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestNewPublisher_Validates(t *testing.T) {
	t.Parallel()

	if _, err := NewPublisher(time.Second, nil, fixedMeter{}); err == nil {
		t.Error("expected error for nil sender")
	}
	if _, err := NewPublisher(time.Second, &Sender{}, nil); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestSender_Closed(t *testing.T) {
	t.Parallel()

	s, err := NewSender("127.0.0.1:9")
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.Send([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if _, err := NewSender("not an address"); err == nil {
		t.Error("expected resolve error")
	}
}
