// Package messaging is the outbound messaging capability: delivering the
// final narration text to a phone-number-like address.
package messaging

import (
	"context"

	"github.com/rs/zerolog"
)

// Sender delivers one text message to a recipient.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// LogSender is a no-delivery Sender for development runs without messaging
// credentials.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "messaging").Logger()}
}

func (s *LogSender) Send(_ context.Context, recipient, text string) error {
	s.logger.Info().Str("recipient", recipient).Str("text", text).Msg("message (not delivered, log sender)")
	return nil
}
