package messaging

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const twilioAPI = "https://api.twilio.com/2010-04-01"

// TwilioSender delivers WhatsApp messages through the Twilio REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	http       *http.Client
	logger     zerolog.Logger
}

func NewTwilioSender(accountSID, authToken, from string, timeout time.Duration, logger zerolog.Logger) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		http:       &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "messaging").Logger(),
	}
}

func (t *TwilioSender) Send(ctx context.Context, recipient, text string) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is required")
	}

	form := url.Values{}
	form.Set("From", whatsapp(t.from))
	form.Set("To", whatsapp(recipient))
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPI, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		t.logger.Error().Err(err).Str("recipient", recipient).Msg("message delivery failed")
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Error().Int("status", resp.StatusCode).Str("recipient", recipient).Msg("message rejected")
		return fmt.Errorf("message rejected: %s", resp.Status)
	}

	t.logger.Info().Str("recipient", recipient).Msg("message sent")
	return nil
}

// whatsapp normalizes a phone-number-like address onto the whatsapp channel.
func whatsapp(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
