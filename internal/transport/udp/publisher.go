// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"voicefx/internal/chain"
)

/*
Meter packet layout (BigEndian):

	| Field           | Type       | Bytes | Description                  |
	|-----------------|------------|-------|------------------------------|
	| Sequence Number | uint32     | 4     | Monotonically increasing     |
	| Timestamp       | int64      | 8     | Nanoseconds since epoch      |
	| Value Count     | uint16     | 2     | Number of floats, always 5   |
	| Values          | [5]float32 | 20    | See Packet                   |
*/
const (
	headerSize = 4 + 8 + 2
	valueCount = 5
	PacketSize = headerSize + valueCount*4
)

// Packet is a decoded meter datagram.
type Packet struct {
	Seq             uint32
	Timestamp       int64
	PeakIn          float32 // linear
	PeakOut         float32 // linear
	LimiterGain     float32
	CompressorGain  float32
	GainReductionDB float32
}

// AppendPacket encodes a meter snapshot onto dst.
func AppendPacket(dst []byte, seq uint32, timestamp int64, m chain.Meter) []byte {
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = binary.BigEndian.AppendUint16(dst, valueCount)
	for _, v := range [valueCount]float64{m.PeakIn, m.PeakOut, m.LimiterGain, m.CompressorGain, m.GainReductionDB()} {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
	}
	return dst
}

// DecodePacket parses a datagram produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, errors.New("short meter packet")
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	if n != valueCount || len(b) != headerSize+4*n {
		return Packet{}, fmt.Errorf("meter packet: %d values in %d bytes", n, len(b))
	}
	f := func(i int) float32 {
		off := headerSize + 4*i
		return math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return Packet{
		Seq:             binary.BigEndian.Uint32(b[0:4]),
		Timestamp:       int64(binary.BigEndian.Uint64(b[4:12])),
		PeakIn:          f(0),
		PeakOut:         f(1),
		LimiterGain:     f(2),
		CompressorGain:  f(3),
		GainReductionDB: f(4),
	}, nil
}

// MeterSource provides the latest chain meters.
type MeterSource interface {
	Meter() chain.Meter
}

// Publisher periodically sends meter packets through a Sender.
type Publisher struct {
	sender   *Sender
	src      MeterSource
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup

	seq    uint32
	packet []byte
}

// NewPublisher creates a publisher. Intervals <= 0 default to 16ms.
func NewPublisher(interval time.Duration, sender *Sender, src MeterSource) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if src == nil {
		return nil, errors.New("udp publisher: meter source cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		logger.Warnf("invalid interval, defaulting to %s", interval)
	}
	return &Publisher{
		sender:   sender,
		src:      src,
		interval: interval,
		now:      time.Now,
		packet:   make([]byte, 0, PacketSize),
	}, nil
}

// Start launches the publishing goroutine; it is a no-op when running.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		logger.Warnf("publisher already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	ticker, done := p.ticker, p.done

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
	logger.Infof("publishing meters every %s", p.interval)
}

// Stop halts publishing and waits for the goroutine to exit.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.done)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Publisher) publish() {
	p.seq++
	p.packet = AppendPacket(p.packet[:0], p.seq, p.now().UnixNano(), p.src.Meter())
	if err := p.sender.Send(p.packet); err != nil {
		logger.Debugf("packet %d: %v", p.seq, err)
	}
}

// Close stops the publisher.
func (p *Publisher) Close() error { return p.Stop() }
