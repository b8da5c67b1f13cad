package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/avvvet/beckn-intent/internal/llm"
	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/prompts"
	"github.com/avvvet/beckn-intent/internal/registry"
	"github.com/avvvet/beckn-intent/internal/schema"
	"github.com/rs/zerolog"
)

// ComposeResult is the composer's structured outcome. Status=false means
// nothing may reach the network; Message carries the diagnostic.
type ComposeResult struct {
	Status  bool
	Request *models.ProtocolRequest
	Message string
}

// Composer merges schema, envelope, policy, profile, history and the
// instruction into one protocol request. The model drafts the body; the
// authoritative envelope then overwrites any generated context block, the
// target URL is derived deterministically, and empty fields are stripped.
type Composer struct {
	provider llm.Provider
	logger   zerolog.Logger
}

func NewComposer(provider llm.Provider, logger zerolog.Logger) *Composer {
	return &Composer{
		provider: provider,
		logger:   logger.With().Str("component", "composer").Logger(),
	}
}

func (c *Composer) Compose(
	ctx context.Context,
	instruction string,
	sch *schema.Schema,
	env models.Envelope,
	policy *registry.DomainPolicy,
	profile models.Profile,
	history []models.ConversationMessage,
) ComposeResult {
	messages := c.buildMessages(instruction, sch, env, policy, profile, history)

	content, err := c.provider.Complete(ctx, messages, llm.Options{JSONMode: true})
	if err != nil {
		c.logger.Error().Err(err).Msg("composition call failed")
		return ComposeResult{Message: "failed to compose the request: " + err.Error()}
	}

	out, err := prompts.ParseComposeOutput(content)
	if err != nil {
		c.logger.Error().Err(err).Msg("malformed composition output")
		return ComposeResult{Message: "malformed composition output: " + err.Error()}
	}

	// The generated context block is advisory at best; the authoritative
	// envelope always replaces it before the payload is finalized.
	out.Body["context"] = env.AsMap()

	body := StripEmptyObject(out.Body)

	message, ok := body["message"].(map[string]any)
	if !ok || len(message) == 0 {
		return ComposeResult{Message: "composed request has no message body"}
	}

	request := &models.ProtocolRequest{
		URL:     strings.TrimRight(policy.Endpoint, "/") + "/" + env.Action,
		Method:  "POST",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: models.RequestBody{
			Context: env,
			Message: message,
		},
	}

	c.logger.Info().Str("url", request.URL).Str("action", env.Action).Msg("request composed")
	return ComposeResult{Status: true, Request: request}
}

// buildMessages assembles the composition prompt. Order of precedence is
// encoded by position: schema structure first, then policy presets, domain
// guidance, profile, conversation history, and the explicit instruction
// last so later sources override earlier ones.
func (c *Composer) buildMessages(
	instruction string,
	sch *schema.Schema,
	env models.Envelope,
	policy *registry.DomainPolicy,
	profile models.Profile,
	history []models.ConversationMessage,
) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+16)

	schemaJSON, _ := json.Marshal(sch.Definition)
	messages = append(messages, llm.System("Schema definition: "+string(schemaJSON)))

	for _, rule := range prompts.SchemaTranslationRules {
		messages = append(messages, llm.System(rule))
	}

	presets := map[string]any{
		"context": env.AsMap(),
	}
	if len(policy.SupportedTags) > 0 {
		presets["supported_tags"] = policy.SupportedTags
	}
	presetsJSON, _ := json.Marshal(presets)
	messages = append(messages, llm.System("Use the following presets to fill the context : "+string(presetsJSON)))

	for _, guidance := range prompts.DomainGuidance[policy.Key] {
		messages = append(messages, llm.System(guidance))
	}

	if len(profile) > 0 {
		profileJSON, _ := json.Marshal(profile)
		messages = append(messages, llm.System("Known user profile, use it for billing and contact details : "+string(profileJSON)))
	}

	for _, turn := range history {
		switch turn.Role {
		case "assistant":
			messages = append(messages, llm.Assistant(turn.Message))
		case "user":
			messages = append(messages, llm.User(turn.Message))
		}
	}

	messages = append(messages, llm.User(instruction))
	return messages
}
