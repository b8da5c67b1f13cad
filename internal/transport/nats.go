package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/beckn-intent/internal/config"
	"github.com/avvvet/beckn-intent/internal/messaging"
	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/pipeline"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// turnTimeout bounds one full turn: classification, composition, the
// network call and narration together.
const turnTimeout = 120 * time.Second

type NATSTransport struct {
	conn         *nats.Conn
	config       *config.Config
	orchestrator *pipeline.Orchestrator
	sender       messaging.Sender
	logger       zerolog.Logger
	sub          *nats.Subscription
}

func NewNATSTransport(cfg *config.Config, orchestrator *pipeline.Orchestrator, sender messaging.Sender, logger zerolog.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log := logger.With().Str("component", "transport").Logger()
	log.Info().Str("url", cfg.NatsURL).Msg("connected to NATS")

	return &NATSTransport{
		conn:         conn,
		config:       cfg,
		orchestrator: orchestrator,
		sender:       sender,
		logger:       log,
	}, nil
}

func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.Subscribe(nt.config.NatsRequestSubject, nt.handleChatRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.config.NatsRequestSubject, err)
	}
	nt.sub = sub

	nt.logger.Info().Str("subject", nt.config.NatsRequestSubject).Msg("subscribed")
	return nil
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	var request models.ChatRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		nt.logger.Error().Err(err).Msg("error parsing request")
		nt.sendErrorResponse(msg, &request, models.ErrorParse, "Invalid request format")
		return
	}
	if request.SessionID == "" || request.Message == "" {
		nt.sendErrorResponse(msg, &request, models.ErrorParse, "session_id and message are required")
		return
	}

	nt.logger.Info().Str("session", request.SessionID).Msg("processing message")

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	result := nt.orchestrator.ProcessMessage(ctx, request.SessionID, request.UserID, request.Message)

	response := &models.ChatResponse{
		SessionID: request.SessionID,
		Status:    result.Status,
		Message:   result.Message,
	}
	if result.Action != nil {
		action := string(*result.Action)
		response.Action = &action
	}

	if err := nt.sendResponse(msg, response); err != nil {
		nt.logger.Error().Err(err).Msg("error sending response")
	}

	// Deliver the narration over the messaging channel when the caller
	// supplied a recipient address.
	if request.Recipient != "" && result.Message != "" {
		if err := nt.sender.Send(ctx, request.Recipient, result.Message); err != nil {
			nt.logger.Error().Err(err).Str("recipient", request.Recipient).Msg("message delivery failed")
		}
	}
}

func (nt *NATSTransport) sendResponse(msg *nats.Msg, response *models.ChatResponse) error {
	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := msg.Respond(responseData); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	nt.logger.Debug().Str("session", response.SessionID).Bool("status", response.Status).Msg("response sent")
	return nil
}

func (nt *NATSTransport) sendErrorResponse(msg *nats.Msg, request *models.ChatRequest, errorCode, errorMessage string) {
	response := &models.ChatResponse{
		SessionID:    request.SessionID,
		Message:      "I'm sorry, I encountered an error processing your request. Please try again.",
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}

	if err := nt.sendResponse(msg, response); err != nil {
		nt.logger.Error().Err(err).Msg("failed to send error response")
	}
}

func (nt *NATSTransport) Close() error {
	if nt.sub != nil {
		_ = nt.sub.Unsubscribe()
	}
	if nt.conn != nil {
		nt.conn.Close()
		nt.logger.Info().Msg("NATS connection closed")
	}
	return nil
}
