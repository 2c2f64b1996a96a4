// SPDX-License-Identifier: MIT
package transport

import "encoding/json"

// LoggingTransport writes every message to the debug log as JSON.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	logger.Infof("using logging transport")
	return &LoggingTransport{}
}

func (lt *LoggingTransport) Send(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		logger.Debugf("%T: %+v (marshal: %v)", data, data, err)
		return nil
	}
	logger.Debugf("%s", b)
	return nil
}

func (lt *LoggingTransport) Close() error { return nil }

var _ Transport = (*LoggingTransport)(nil)
