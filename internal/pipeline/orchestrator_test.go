package pipeline_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avvvet/beckn-intent/internal/llm"
	"github.com/avvvet/beckn-intent/internal/memory"
	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/network"
	"github.com/avvvet/beckn-intent/internal/pipeline"
	"github.com/avvvet/beckn-intent/internal/registry"
	"github.com/avvvet/beckn-intent/internal/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchestratorEnv struct {
	orchestrator *pipeline.Orchestrator
	sessions     *memory.Manager
	store        *memory.MemoryStore
}

func newOrchestratorEnv(t *testing.T, provider llm.Provider, endpoint string) *orchestratorEnv {
	t.Helper()

	reg := &registry.Registry{Domains: []registry.DomainPolicy{{
		Key:      "hospitality",
		Domain:   "hospitality",
		Version:  "1.1.0",
		Endpoint: endpoint,
		BppID:    "bpp.hotels.example.org",
		BppURI:   "https://bpp.hotels.example.org",
		Keywords: []string{"hotel", "hotels", "stay"},
		SupportedTags: []registry.Tag{
			{Code: "pet-friendly"},
			{Code: "ev-charging"},
		},
	}}}

	return newOrchestratorEnvWithRegistry(t, provider, reg)
}

func newOrchestratorEnvWithRegistry(t *testing.T, provider llm.Provider, reg *registry.Registry) *orchestratorEnv {
	t.Helper()

	logger := zerolog.Nop()
	store := memory.NewMemoryStore()
	sessions := memory.NewManager(store, logger)

	orch := pipeline.NewOrchestrator(
		pipeline.NewClassifier(provider, logger),
		schema.NewResolver(nil, nil, logger),
		pipeline.NewEnvelopeBuilder(reg, "bap.example.org", "https://bap.example.org", logger),
		pipeline.NewComposer(provider, logger),
		pipeline.NewNarrator(provider, logger),
		pipeline.NewProfileExtractor(provider, logger),
		network.NewClient(0, logger),
		sessions,
		logger,
	)

	return &orchestratorEnv{orchestrator: orch, sessions: sessions, store: store}
}

func searchResponseJSON() string {
	raw, _ := json.Marshal(searchResponse())
	return string(raw)
}

func TestProcessMessageSearchEndToEnd(t *testing.T) {
	var captured struct {
		path string
		body map[string]any
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponseJSON()))
	}))
	defer server.Close()

	provider := &fakeProvider{responses: []string{
		// classify
		`{"action":"search","response":"Searching for hotels."}`,
		// profile extraction
		`{}`,
		// compose
		`{"url":"","method":"POST","body":{"context":{"domain":"bogus"},"message":{"intent":{"item":{"tags":[{"list":[{"descriptor":{"code":"pet-friendly"},"value":"yes"}]}]}}}}}`,
		// narrate
		"I found Cozy Stays and Hilltop Camp for you.",
	}}
	env := newOrchestratorEnv(t, provider, server.URL)

	result := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "find pet-friendly hotels near Bangalore")

	require.True(t, result.Status, result.Message)
	assert.Contains(t, result.Message, "Cozy Stays")
	assert.Contains(t, result.Message, "select")

	// The request went to {endpoint}/search with the authoritative context.
	assert.Equal(t, "/search", captured.path)
	reqCtx := captured.body["context"].(map[string]any)
	assert.Equal(t, "hospitality", reqCtx["domain"])
	assert.Equal(t, "search", reqCtx["action"])
	assert.NotEmpty(t, reqCtx["transaction_id"])
	assert.NotEmpty(t, reqCtx["message_id"])

	// The composed tag entry survived intact.
	msg := captured.body["message"].(map[string]any)
	intent := msg["intent"].(map[string]any)
	tags := intent["item"].(map[string]any)["tags"].([]any)
	entry := tags[0].(map[string]any)["list"].([]any)[0].(map[string]any)
	assert.Equal(t, "pet-friendly", entry["descriptor"].(map[string]any)["code"])
	assert.Equal(t, "yes", entry["value"])

	// Session state was advanced and the counterparty pinned.
	session, err := env.sessions.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, session.Progress.Searched)
	assert.NotEmpty(t, session.TransactionID)
	assert.Equal(t, "hospitality", session.DomainKey)
	assert.Equal(t, "bpp-one", session.BppID)
	assert.Len(t, session.Messages, 2)
}

func TestProcessMessageConfirmWithoutInitRejected(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"action":"confirm","response":"Confirming."}`,
	}}
	env := newOrchestratorEnv(t, provider, "http://unused.invalid")

	result := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "confirm my order")

	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "initiate")
	// Only the classification call happened: no schema, compose or network.
	assert.Equal(t, 1, provider.calls)

	session, err := env.sessions.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, session.Messages, "failed turns are not merged into session state")
}

func TestProcessMessageSelectWithoutSearchRejected(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"action":"select","response":"Selecting."}`,
	}}
	env := newOrchestratorEnv(t, provider, "http://unused.invalid")

	result := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "I'll take the first one")

	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "search")
}

func TestProcessMessageNoActionReturnsFreeText(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"action":null,"response":"Hello! I can help you find and book services."}`,
		`{"name":"Alex"}`,
	}}
	env := newOrchestratorEnv(t, provider, "http://unused.invalid")

	result := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "hi, I'm Alex")

	require.True(t, result.Status)
	assert.Equal(t, "Hello! I can help you find and book services.", result.Message)

	// Profile fields are learned even on non-action turns.
	session, err := env.sessions.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Alex", session.Profile["name"])
	assert.Len(t, session.Messages, 2)
}

func TestProcessMessageClearChatKeepsProfile(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"action":"clear_chat","response":"Clearing."}`,
	}}
	env := newOrchestratorEnv(t, provider, "http://unused.invalid")

	seed := memory.NewSession("s1")
	seed.Profile = models.Profile{"name": "Alex"}
	seed.TransactionID = "txn-old"
	seed.Progress = memory.OrderProgress{Searched: true, Selected: true}
	seed.Messages = []memory.Message{{Role: "user", Content: "old"}}
	require.NoError(t, env.store.SaveSession(context.Background(), seed))

	result := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "clear the chat")

	require.True(t, result.Status)

	session, err := env.sessions.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
	assert.Empty(t, session.TransactionID)
	assert.False(t, session.Progress.Searched)
	assert.Equal(t, "Alex", session.Profile["name"], "clear_chat keeps the profile")
}

func TestProcessMessageClearAllDropsEverything(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"action":"clear_all","response":"Clearing everything."}`,
	}}
	env := newOrchestratorEnv(t, provider, "http://unused.invalid")

	seed := memory.NewSession("s1")
	seed.Profile = models.Profile{"name": "Alex"}
	seed.Messages = []memory.Message{{Role: "user", Content: "old"}}
	require.NoError(t, env.store.SaveSession(context.Background(), seed))

	result := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "forget everything about me")

	require.True(t, result.Status)

	session, err := env.sessions.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
	assert.Empty(t, session.Profile)
}

func TestProcessMessageNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	provider := &fakeProvider{responses: []string{
		`{"action":"search","response":"Searching."}`,
		`{}`,
		`{"url":"","method":"POST","body":{"message":{"intent":{"item":{"descriptor":{"name":"hotel"}}}}}}`,
	}}
	env := newOrchestratorEnv(t, provider, server.URL)

	result := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "find hotels")

	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "Failed to reach the network")

	session, err := env.sessions.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, session.Progress.Searched, "failed turns do not advance the transaction")
	assert.Empty(t, session.Messages)
}

func TestProcessMessageAmbiguousDomain(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"action":"search","response":"Searching."}`,
	}}
	env := newOrchestratorEnv(t, provider, "http://unused.invalid")

	result := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "find me a unicorn")

	assert.False(t, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestComposePromptCarriesCommittedHistoryAndUtteranceOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponseJSON()))
	}))
	defer server.Close()

	provider := &fakeProvider{responses: []string{
		`{"action":"search","response":"Searching."}`,
		`{}`,
		`{"url":"","method":"POST","body":{"message":{"intent":{"item":{"id":"i1"}}}}}`,
		"Found Cozy Stays.",
	}}
	env := newOrchestratorEnv(t, provider, server.URL)
	ctx := context.Background()

	session, err := env.sessions.Session(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, env.sessions.CommitTurn(ctx, session, "hello there", "Hi! What can I find for you?"))

	utterance := "find pet-friendly hotels near Bangalore"
	result := env.orchestrator.ProcessMessage(ctx, "s1", "u1", utterance)
	require.True(t, result.Status, result.Message)

	// Calls: classify, profile extraction, compose, narrate.
	require.Len(t, provider.prompts, 4)
	compose := provider.prompts[2]

	var utteranceCount int
	var sawPriorReply bool
	for _, msg := range compose {
		if msg.Role == "user" && msg.Content == utterance {
			utteranceCount++
		}
		if msg.Role == "assistant" && msg.Content == "Hi! What can I find for you?" {
			sawPriorReply = true
		}
	}
	assert.Equal(t, 1, utteranceCount, "the current instruction must appear exactly once in the prompt")
	assert.True(t, sawPriorReply, "committed turns must reach the composition prompt")
}

func TestSearchAfterSearchSwitchesDomain(t *testing.T) {
	var domains []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		if reqCtx, ok := body["context"].(map[string]any); ok {
			domains = append(domains, reqCtx["domain"].(string))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponseJSON()))
	}))
	defer server.Close()

	provider := &fakeProvider{responses: []string{
		// turn 1: hotel search
		`{"action":"search","response":"Searching hotels."}`,
		`{}`,
		`{"url":"","method":"POST","body":{"message":{"intent":{"item":{"id":"i1"}}}}}`,
		"Found Cozy Stays.",
		// turn 2: charging search
		`{"action":"search","response":"Searching chargers."}`,
		`{}`,
		`{"url":"","method":"POST","body":{"message":{"intent":{"item":{"id":"i2"}}}}}`,
		"Found a charging station.",
	}}
	env := newOrchestratorEnvWithRegistry(t, provider, twoDomainRegistry(server.URL))

	first := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "find me a hotel in Bangalore")
	require.True(t, first.Status, first.Message)

	second := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "find ev charging stations near me")
	require.True(t, second.Status, second.Message)

	require.Len(t, domains, 2)
	assert.Equal(t, "hospitality", domains[0])
	assert.Equal(t, "uei:charging", domains[1], "a search naming another domain must not reuse the pinned one")

	session, err := env.sessions.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "ev-charging", session.DomainKey)
}

func TestTransactionIDStableAcrossFlow(t *testing.T) {
	var transactions []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		if ctx, ok := body["context"].(map[string]any); ok {
			transactions = append(transactions, ctx["transaction_id"].(string))
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			_, _ = w.Write([]byte(searchResponseJSON()))
		default:
			_, _ = w.Write([]byte(`{"responses":[{"message":{"order":{"id":"ORD123"}}}]}`))
		}
	}))
	defer server.Close()

	provider := &fakeProvider{responses: []string{
		// turn 1: search
		`{"action":"search","response":"Searching."}`,
		`{}`,
		`{"url":"","method":"POST","body":{"message":{"intent":{"item":{"tags":[{"list":[{"descriptor":{"code":"pet-friendly"},"value":"yes"}]}]}}}}}`,
		"Found Cozy Stays.",
		// turn 2: select
		`{"action":"select","response":"Selecting."}`,
		`{}`,
		`{"url":"","method":"POST","body":{"message":{"order":{"items":[{"id":"i1"}]}}}}`,
		"You selected the Deluxe Room.",
	}}
	env := newOrchestratorEnv(t, provider, server.URL)

	first := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "find pet-friendly hotels")
	require.True(t, first.Status, first.Message)

	second := env.orchestrator.ProcessMessage(context.Background(), "s1", "u1", "I'll take the Deluxe Room")
	require.True(t, second.Status, second.Message)

	require.Len(t, transactions, 2)
	assert.Equal(t, transactions[0], transactions[1], "transaction_id must be stable across the order flow")

	// The select call carries the counterparty pinned from the search.
	session, err := env.sessions.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, session.Progress.Selected)
	assert.Equal(t, "bpp-one", session.BppID)
}
