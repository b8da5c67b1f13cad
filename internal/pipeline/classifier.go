// Package pipeline implements the instruction-to-protocol translation
// pipeline: classify an utterance, resolve its schema, build the protocol
// envelope, compose the request, and turn the network response back into
// user-facing text. Stages are strictly sequential within one turn.
package pipeline

import (
	"context"

	"github.com/avvvet/beckn-intent/internal/llm"
	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/prompts"
	"github.com/rs/zerolog"
)

// ClassifyResult is the classifier's advisory output. Action is nil when
// the utterance maps to no protocol action; Reply then carries the model's
// free-text answer for the user.
type ClassifyResult struct {
	Action *models.Action
	Reply  string
}

// Classifier maps an utterance onto the closed action set. Only the single
// most recent prior turn is offered as context; more history degrades
// classification accuracy.
type Classifier struct {
	provider llm.Provider
	logger   zerolog.Logger
}

func NewClassifier(provider llm.Provider, logger zerolog.Logger) *Classifier {
	return &Classifier{
		provider: provider,
		logger:   logger.With().Str("component", "classifier").Logger(),
	}
}

// Classify determines the protocol action for an utterance. Any model
// failure or unparsable output yields a nil action, never an error that
// escapes the pipeline.
func (c *Classifier) Classify(ctx context.Context, utterance string, lastTurn *models.ConversationMessage) ClassifyResult {
	messages := make([]llm.Message, 0, 8)
	for _, sys := range prompts.ClassifierMessages() {
		messages = append(messages, llm.System(sys))
	}
	if lastTurn != nil {
		switch lastTurn.Role {
		case "assistant":
			messages = append(messages, llm.Assistant(lastTurn.Message))
		case "user":
			messages = append(messages, llm.User(lastTurn.Message))
		}
	}
	messages = append(messages, llm.User(utterance))

	content, err := c.provider.Complete(ctx, messages, llm.Options{JSONMode: true})
	if err != nil {
		c.logger.Error().Err(err).Msg("classification call failed")
		return ClassifyResult{Reply: prompts.FallbackMessage}
	}

	out, err := prompts.ParseClassifyOutput(content)
	if err != nil {
		c.logger.Error().Err(err).Msg("unparsable classification output")
		return ClassifyResult{Reply: prompts.FallbackMessage}
	}

	result := ClassifyResult{Reply: out.Response}
	if result.Reply == "" {
		result.Reply = prompts.FallbackMessage
	}
	if out.Action != nil {
		if action, ok := models.ParseAction(*out.Action); ok {
			result.Action = &action
		} else {
			c.logger.Warn().Str("action", *out.Action).Msg("classifier proposed unknown action, ignoring")
		}
	}

	c.logger.Info().Interface("action", result.Action).Msg("classified")
	return result
}
