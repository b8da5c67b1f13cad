package pipeline

import (
	"context"
	"fmt"

	"github.com/avvvet/beckn-intent/internal/memory"
	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/network"
	"github.com/avvvet/beckn-intent/internal/schema"
	"github.com/rs/zerolog"
)

// historyWindow bounds how much conversation is replayed into prompts.
const historyWindow = 10

// Orchestrator sequences the pipeline for one incoming message:
// classify > resolve schema > build envelope > compose > call network >
// compress > narrate. Any stage failure short-circuits the rest and yields
// a user-facing failure message; failed turns are never merged into
// session state. The orchestrator, not the classifier, enforces the
// search > select > init > confirm ordering.
type Orchestrator struct {
	classifier *Classifier
	schemas    *schema.Resolver
	envelopes  *EnvelopeBuilder
	composer   *Composer
	narrator   *Narrator
	extractor  *ProfileExtractor
	network    *network.Client
	sessions   *memory.Manager
	logger     zerolog.Logger
}

func NewOrchestrator(
	classifier *Classifier,
	schemas *schema.Resolver,
	envelopes *EnvelopeBuilder,
	composer *Composer,
	narrator *Narrator,
	extractor *ProfileExtractor,
	netClient *network.Client,
	sessions *memory.Manager,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		schemas:    schemas,
		envelopes:  envelopes,
		composer:   composer,
		narrator:   narrator,
		extractor:  extractor,
		network:    netClient,
		sessions:   sessions,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
	}
}

// ProcessMessage drives one turn end to end and returns the reply for the
// user. It never returns an error: every failure mode maps onto a
// TurnResult with Status=false and a plain-language message.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, userID, text string) models.TurnResult {
	session, err := o.sessions.Session(ctx, sessionID)
	if err != nil {
		o.logger.Error().Err(err).Str("session", sessionID).Msg("failed to load session")
		return failure(nil, "I couldn't load your session. Please try again.")
	}
	if session.UserID == "" {
		session.UserID = userID
	}

	result := o.classifier.Classify(ctx, text, lastTurn(session))

	// No action: return the classifier's free-text reply directly, but
	// still learn profile fields and keep the conversation.
	if result.Action == nil {
		o.learnProfile(ctx, text, session)
		o.commit(ctx, session, text, result.Reply)
		return models.TurnResult{Status: true, Message: result.Reply}
	}
	action := *result.Action

	switch action {
	case models.ActionClearChat:
		if err := o.sessions.ClearHistory(ctx, sessionID); err != nil {
			o.logger.Error().Err(err).Msg("failed to clear conversation")
			return failure(&action, "I couldn't clear the conversation. Please try again.")
		}
		return models.TurnResult{Status: true, Action: &action, Message: "Conversation cleared. What would you like to do next?"}
	case models.ActionClearAll:
		if err := o.sessions.ClearAll(ctx, sessionID); err != nil {
			o.logger.Error().Err(err).Msg("failed to clear session")
			return failure(&action, "I couldn't clear your session. Please try again.")
		}
		return models.TurnResult{Status: true, Action: &action, Message: "Session and profile cleared. We're starting fresh."}
	}

	// The classifier is advisory; ordering validity is decided here.
	if msg := orderGuard(action, session.Progress); msg != "" {
		o.logger.Warn().Str("action", string(action)).Msg("order flow violation rejected")
		return failure(&action, msg)
	}

	return o.processOrderAction(ctx, action, text, session)
}

func (o *Orchestrator) processOrderAction(ctx context.Context, action models.Action, text string, session *memory.SessionData) models.TurnResult {
	sch := o.schemas.Resolve(action)

	env, policy, err := o.envelopes.Build(text, action, session)
	if err != nil {
		o.logger.Error().Err(err).Str("action", string(action)).Msg("envelope build failed")
		return failure(&action, "I couldn't figure out which service you mean. Could you be more specific?")
	}

	o.learnProfile(ctx, text, session)

	// Prior turns only: the composer appends the current instruction as the
	// final user message itself.
	history := o.recentHistory(ctx, session)

	composed := o.composer.Compose(ctx, text, sch, env, policy, session.Profile, history)
	if !composed.Status {
		o.logger.Error().Str("diagnostic", composed.Message).Msg("composition failed")
		return failure(&action, "I couldn't prepare that request. Could you rephrase it?")
	}

	call := o.network.Call(ctx, composed.Request.URL, composed.Request.Method, composed.Request.Body, composed.Request.Headers)
	if !call.Status {
		return failure(&action, fmt.Sprintf("Failed to reach the network: %s", call.Error))
	}

	narrationInput := call.Data
	if action == models.ActionSearch {
		compressed := Compress(call.Data)
		narrationInput = CompressedAsMap(compressed)
		pinSearchResult(session, env, policy.Key, compressed)
	}

	narration := o.narrator.Narrate(ctx, action, narrationInput, history, session.Profile)
	if !narration.Status {
		if narration.UpstreamError {
			o.logger.Info().Str("action", string(action)).Msg("upstream error summarized for user")
		} else {
			o.logger.Error().Str("action", string(action)).Msg("narration failed, turn dropped")
		}
		return models.TurnResult{Action: &action, Message: narration.Message}
	}

	advanceProgress(session, action, env)
	o.commit(ctx, session, text, narration.Message)

	return models.TurnResult{
		Status:  true,
		Action:  &action,
		Message: narration.Message,
		Raw:     narrationInput,
	}
}

// recentHistory reads the windowed conversation from the session manager's
// buffer. When the buffer cannot be hydrated the stored turns stand in, so
// a degraded cache never fails the turn.
func (o *Orchestrator) recentHistory(ctx context.Context, session *memory.SessionData) []models.ConversationMessage {
	history, err := o.sessions.History(ctx, session.SessionID, historyWindow)
	if err != nil {
		o.logger.Warn().Err(err).Str("session", session.SessionID).Msg("conversation buffer unavailable, using stored turns")
		history = session.History()
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
	}
	return history
}

// learnProfile merges newly extracted profile fields into the working
// session. Extraction failures are logged and ignored; they never fail the
// turn.
func (o *Orchestrator) learnProfile(ctx context.Context, text string, session *memory.SessionData) {
	patch, err := o.extractor.Extract(ctx, text, session.Profile)
	if err != nil {
		o.logger.Warn().Err(err).Msg("profile extraction failed")
		return
	}
	if len(patch) > 0 {
		session.Profile = session.Profile.Merge(patch)
	}
}

// commit persists the completed turn. A save failure is logged but does
// not turn a delivered reply into a user-facing error.
func (o *Orchestrator) commit(ctx context.Context, session *memory.SessionData, userMsg, assistantMsg string) {
	if err := o.sessions.CommitTurn(ctx, session, userMsg, assistantMsg); err != nil {
		o.logger.Error().Err(err).Str("session", session.SessionID).Msg("failed to persist turn")
	}
}

// orderGuard returns a user-facing rejection when the action is out of
// order for the current transaction, or "" when the action is allowed.
func orderGuard(action models.Action, progress memory.OrderProgress) string {
	switch action {
	case models.ActionSelect:
		if !progress.Searched {
			return "Please search for items first, then select one from the results."
		}
	case models.ActionInit:
		if !progress.Selected {
			return "Please select an item before initiating the order."
		}
	case models.ActionConfirm:
		if !progress.Inited {
			return "Please initiate the order before confirming it."
		}
	}
	return ""
}

// pinSearchResult threads the transaction identity and the counterparty of
// the first compressed provider into session state for the rest of the
// order flow.
func pinSearchResult(session *memory.SessionData, env models.Envelope, domainKey string, compressed models.CompressedResponse) {
	session.TransactionID = env.TransactionID
	session.DomainKey = domainKey
	if len(compressed.Providers) > 0 {
		session.BppID = compressed.Providers[0].BppID
		session.BppURI = compressed.Providers[0].BppURI
	}
}

// advanceProgress records the completed stage. A confirmed order ends the
// transaction: the next search mints a fresh transaction_id.
func advanceProgress(session *memory.SessionData, action models.Action, env models.Envelope) {
	switch action {
	case models.ActionSearch:
		session.TransactionID = env.TransactionID
		session.Progress.Searched = true
	case models.ActionSelect:
		session.Progress.Selected = true
	case models.ActionInit:
		session.Progress.Inited = true
	case models.ActionConfirm:
		session.ResetTransaction()
	}
}

func lastTurn(session *memory.SessionData) *models.ConversationMessage {
	if len(session.Messages) == 0 {
		return nil
	}
	last := session.Messages[len(session.Messages)-1]
	return &models.ConversationMessage{Role: last.Role, Message: last.Content}
}

func failure(action *models.Action, message string) models.TurnResult {
	return models.TurnResult{Action: action, Message: message}
}
