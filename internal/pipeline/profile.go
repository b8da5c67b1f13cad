package pipeline

import (
	"context"
	"encoding/json"

	"github.com/avvvet/beckn-intent/internal/llm"
	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/prompts"
	"github.com/rs/zerolog"
)

// ProfileExtractor incrementally pulls user attributes out of free text.
// It only reports fields that are unambiguous and new or more specific
// than the existing value; finding nothing is not an error.
type ProfileExtractor struct {
	provider llm.Provider
	logger   zerolog.Logger
}

func NewProfileExtractor(provider llm.Provider, logger zerolog.Logger) *ProfileExtractor {
	return &ProfileExtractor{
		provider: provider,
		logger:   logger.With().Str("component", "profile").Logger(),
	}
}

// Extract returns the newly learned profile fields for a message. The
// merge policy (additive, never downgrade) lives with the caller.
func (e *ProfileExtractor) Extract(ctx context.Context, text string, existing models.Profile) (models.Profile, error) {
	messages := []llm.Message{
		llm.System(prompts.ProfileExtraction),
	}
	if len(existing) > 0 {
		known, _ := json.Marshal(existing)
		messages = append(messages, llm.System("Already known profile : "+string(known)))
	}
	messages = append(messages, llm.User(text))

	content, err := e.provider.Complete(ctx, messages, llm.Options{JSONMode: true})
	if err != nil {
		return nil, err
	}

	patch, err := prompts.ParseProfilePatch(content)
	if err != nil {
		return nil, err
	}

	if len(patch) > 0 {
		e.logger.Debug().Int("fields", len(patch)).Msg("profile fields extracted")
	}
	return models.Profile(patch), nil
}
