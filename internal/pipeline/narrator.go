package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avvvet/beckn-intent/internal/llm"
	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/prompts"
	"github.com/rs/zerolog"
)

// NarrationResult is the narrator's outcome for one response. Status=false
// with UpstreamError set means the response itself was an error and its
// summary was produced normally, as opposed to narration breaking down.
type NarrationResult struct {
	Status        bool   `json:"status"`
	Message       string `json:"message"`
	UpstreamError bool   `json:"upstream_error,omitempty"`
}

// Narrator converts a protocol response (or error shape) into a single
// human-readable message. The descriptive part comes from the model; the
// call-to-action is appended deterministically per action.
type Narrator struct {
	provider llm.Provider
	logger   zerolog.Logger
}

func NewNarrator(provider llm.Provider, logger zerolog.Logger) *Narrator {
	return &Narrator{
		provider: provider,
		logger:   logger.With().Str("component", "narrator").Logger(),
	}
}

func (n *Narrator) Narrate(
	ctx context.Context,
	action models.Action,
	response map[string]any,
	history []models.ConversationMessage,
	profile models.Profile,
) NarrationResult {
	if len(response) == 0 {
		return NarrationResult{Message: "The network returned an empty response."}
	}

	if errShape, ok := response["error"]; ok && errShape != nil {
		return n.narrateError(ctx, response)
	}

	body := n.describe(ctx, action, response, history)
	if body == "" {
		return NarrationResult{Message: prompts.ApologyMessage}
	}

	if cta := callToAction(action, response, profile); cta != "" {
		body = body + "\n\n" + cta
	}

	return NarrationResult{Status: true, Message: body}
}

// describe asks the model for the descriptive part of the reply. An empty
// string signals narration failure.
func (n *Narrator) describe(ctx context.Context, action models.Action, response map[string]any, history []models.ConversationMessage) string {
	raw, err := json.Marshal(response)
	if err != nil {
		n.logger.Error().Err(err).Msg("response not serializable")
		return ""
	}

	messages := make([]llm.Message, 0, len(history)+4)
	for _, sys := range prompts.NarratorMessages(string(action)) {
		messages = append(messages, llm.System(sys))
	}
	for _, turn := range history {
		switch turn.Role {
		case "assistant":
			messages = append(messages, llm.Assistant(turn.Message))
		case "user":
			messages = append(messages, llm.User(turn.Message))
		}
	}
	messages = append(messages, llm.User(string(raw)))

	content, err := n.provider.Complete(ctx, messages, llm.Options{})
	if err != nil {
		n.logger.Error().Err(err).Msg("narration call failed")
		return ""
	}
	return strings.TrimSpace(content)
}

func (n *Narrator) narrateError(ctx context.Context, response map[string]any) NarrationResult {
	raw, _ := json.Marshal(response)

	content, err := n.provider.Complete(ctx, []llm.Message{
		llm.System(prompts.ErrorNarration),
		llm.User(string(raw)),
	}, llm.Options{})
	if err != nil || strings.TrimSpace(content) == "" {
		n.logger.Error().Err(err).Msg("error narration failed")
		return NarrationResult{Message: "Something went wrong on the network side. Please try again.", UpstreamError: true}
	}

	return NarrationResult{Message: strings.TrimSpace(content), UpstreamError: true}
}

// callToAction returns the deterministic prompt appended after the
// narrated body, depending on the action that produced the response and on
// profile completeness.
func callToAction(action models.Action, response map[string]any, profile models.Profile) string {
	switch action {
	case models.ActionSearch:
		return "Please select one of the items to proceed."
	case models.ActionSelect:
		if missing := profile.MissingBillingFields(); len(missing) > 0 {
			return fmt.Sprintf("Before we can initiate the order, please share your billing details (%s).", strings.Join(missing, ", "))
		}
		return "Shall I initiate the order?"
	case models.ActionInit:
		return "Please confirm the order to place it."
	case models.ActionConfirm:
		if orderID := findOrderID(response); orderID != "" {
			return fmt.Sprintf("Your order %s has been placed successfully. Is there anything else you would like to order?", orderID)
		}
		return "Your order has been placed successfully. Is there anything else you would like to order?"
	}
	return ""
}

// findOrderID walks the response for an order identifier: either an
// order_id field or an order object with an id.
func findOrderID(node any) string {
	switch val := node.(type) {
	case map[string]any:
		if id, ok := val["order_id"].(string); ok && id != "" {
			return id
		}
		if order, ok := val["order"].(map[string]any); ok {
			if id, ok := order["id"].(string); ok && id != "" {
				return id
			}
		}
		for _, child := range val {
			if id := findOrderID(child); id != "" {
				return id
			}
		}
	case []any:
		for _, child := range val {
			if id := findOrderID(child); id != "" {
				return id
			}
		}
	}
	return ""
}
