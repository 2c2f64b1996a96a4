// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"

	"voicefx/internal/chain"
	"voicefx/internal/log"
	"voicefx/internal/transport"
	"voicefx/internal/transport/udp"
)

// monitor owns the optional remote control and metering outputs of a
// running chain.
type monitor struct {
	ws        *transport.WebSocketTransport
	pump      *transport.MeterPump
	sender    *udp.Sender
	publisher *udp.Publisher
}

// startMonitor starts the transports enabled in the configuration.
// forceWebSocket enables the websocket server regardless of the
// configuration.
func (a *app) startMonitor(c *chain.Chain, forceWebSocket bool) (_ *monitor, err error) {
	m := &monitor{}
	defer func() {
		if err != nil {
			m.Close()
		}
	}()

	tc := a.cfg.Transport
	var sinks []transport.Transport
	if tc.WebSocketEnabled || forceWebSocket {
		store, err := a.store()
		if err != nil {
			return nil, err
		}
		m.ws = transport.NewWebSocketTransport(tc.WebSocketAddress, c, store)
		if err := m.ws.Start(); err != nil {
			return nil, err
		}
		sinks = append(sinks, m.ws)
	}
	if log.GetLevel() == log.LevelDebug {
		sinks = append(sinks, transport.NewLoggingTransport())
	}
	if len(sinks) > 0 {
		m.pump = transport.NewMeterPump(c, tc.UDPSendInterval, sinks...)
		m.pump.Start()
	}

	if tc.UDPEnabled {
		m.sender, err = udp.NewSender(tc.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		m.publisher, err = udp.NewPublisher(tc.UDPSendInterval, m.sender, c)
		if err != nil {
			return nil, err
		}
		m.publisher.Start()
		logger.Infof("publishing meters to udp://%s", tc.UDPTargetAddress)
	}
	return m, nil
}

// Close stops every started transport.
func (m *monitor) Close() error {
	var errs []error
	if m.pump != nil {
		m.pump.Stop()
	}
	if m.publisher != nil {
		errs = append(errs, m.publisher.Close())
	}
	if m.sender != nil {
		errs = append(errs, m.sender.Close())
	}
	if m.ws != nil {
		errs = append(errs, m.ws.Close())
	}
	return errors.Join(errs...)
}
