package pipeline

import (
	"fmt"
	"time"

	"github.com/avvvet/beckn-intent/internal/memory"
	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/registry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EnvelopeBuilder produces the protocol context block for one request.
// message_id is minted fresh on every call; transaction_id is taken from
// session state when the transaction is already underway and minted only
// when none exists yet.
type EnvelopeBuilder struct {
	registry *registry.Registry
	bapID    string
	bapURI   string
	logger   zerolog.Logger
}

func NewEnvelopeBuilder(reg *registry.Registry, bapID, bapURI string, logger zerolog.Logger) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		registry: reg,
		bapID:    bapID,
		bapURI:   bapURI,
		logger:   logger.With().Str("component", "envelope").Logger(),
	}
}

// Build resolves the domain for the instruction and assembles the envelope.
// An unresolvable or ambiguous domain is a build failure, not a guess.
func (b *EnvelopeBuilder) Build(instruction string, action models.Action, session *memory.SessionData) (models.Envelope, *registry.DomainPolicy, error) {
	policy, err := b.resolvePolicy(instruction, action, session)
	if err != nil {
		return models.Envelope{}, nil, err
	}

	transactionID := session.TransactionID
	if transactionID == "" {
		transactionID = uuid.NewString()
	}

	env := models.Envelope{
		Domain:        policy.Domain,
		Action:        string(action),
		Version:       policy.Version,
		BapID:         b.bapID,
		BapURI:        b.bapURI,
		BppID:         policy.BppID,
		BppURI:        policy.BppURI,
		TransactionID: transactionID,
		MessageID:     uuid.NewString(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	// A counterparty pinned by an earlier search response wins over the
	// registry default.
	if session.BppID != "" {
		env.BppID = session.BppID
		env.BppURI = session.BppURI
	}

	b.logger.Debug().
		Str("domain", env.Domain).
		Str("transaction_id", env.TransactionID).
		Str("message_id", env.MessageID).
		Msg("envelope built")
	return env, policy, nil
}

// resolvePolicy decides which domain the request targets. A search always
// re-matches the instruction, so naming a different domain in plain words
// wins over the session pin; switching domains abandons the running
// transaction. select/init/confirm carry no reliable domain keywords and
// stay on the pinned domain. A search with no matching keyword repeats on
// the session domain when one is pinned.
func (b *EnvelopeBuilder) resolvePolicy(instruction string, action models.Action, session *memory.SessionData) (*registry.DomainPolicy, error) {
	if action == models.ActionSearch {
		matched, err := b.registry.Match(instruction)
		if err == nil {
			if session.DomainKey != "" && session.DomainKey != matched.Key {
				b.logger.Info().Str("from", session.DomainKey).Str("to", matched.Key).Msg("domain switched, abandoning transaction")
				session.ResetTransaction()
			}
			return matched, nil
		}
		if session.DomainKey == "" {
			return nil, fmt.Errorf("failed to resolve domain: %w", err)
		}
	}

	if session.DomainKey != "" {
		policy := b.registry.ByKey(session.DomainKey)
		if policy == nil {
			return nil, fmt.Errorf("session domain %q is no longer registered", session.DomainKey)
		}
		return policy, nil
	}

	matched, err := b.registry.Match(instruction)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve domain: %w", err)
	}
	return matched, nil
}
