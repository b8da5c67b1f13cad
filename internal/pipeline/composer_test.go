package pipeline_test

import (
	"context"
	"testing"

	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/pipeline"
	"github.com/avvvet/beckn-intent/internal/registry"
	"github.com/avvvet/beckn-intent/internal/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hospitalityPolicy() *registry.DomainPolicy {
	return &registry.DomainPolicy{
		Key:      "hospitality",
		Domain:   "hospitality",
		Version:  "1.1.0",
		Endpoint: "https://bap.example.org/",
		Keywords: []string{"hotel"},
		SupportedTags: []registry.Tag{
			{Code: "pet-friendly"},
			{Code: "ev-charging"},
		},
	}
}

func testEnvelope(action models.Action) models.Envelope {
	return models.Envelope{
		Domain:        "hospitality",
		Action:        string(action),
		Version:       "1.1.0",
		BapID:         "bap.example.org",
		BapURI:        "https://bap.example.org",
		TransactionID: "txn-1",
		MessageID:     "msg-1",
		Timestamp:     "2026-01-01T00:00:00Z",
	}
}

func testSchema(action models.Action) *schema.Schema {
	return schema.NewResolver(nil, nil, zerolog.Nop()).Resolve(action)
}

func TestComposeEnvelopeOverridesGeneratedContext(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"url":"https://wrong.example.org/anything","method":"POST","body":{"context":{"domain":"made-up","transaction_id":"bogus"},"message":{"intent":{"item":{"tags":[{"list":[{"descriptor":{"code":"pet-friendly"},"value":"yes"}]}]}}}}}`,
	}}
	c := pipeline.NewComposer(provider, zerolog.Nop())
	env := testEnvelope(models.ActionSearch)

	result := c.Compose(context.Background(), "find pet-friendly hotels near Bangalore",
		testSchema(models.ActionSearch), env, hospitalityPolicy(), models.Profile{}, nil)

	require.True(t, result.Status, result.Message)
	assert.Equal(t, env, result.Request.Body.Context)
	assert.Equal(t, "txn-1", result.Request.Body.Context.TransactionID)
}

func TestComposeDerivesURLFromPolicy(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"url":"https://wrong.example.org/x","method":"GET","body":{"message":{"intent":{"item":{"id":"i1"}}}}}`,
	}}
	c := pipeline.NewComposer(provider, zerolog.Nop())

	result := c.Compose(context.Background(), "find hotels",
		testSchema(models.ActionSearch), testEnvelope(models.ActionSearch), hospitalityPolicy(), models.Profile{}, nil)

	require.True(t, result.Status)
	assert.Equal(t, "https://bap.example.org/search", result.Request.URL)
	assert.Equal(t, "POST", result.Request.Method)
}

func TestComposePreservesTagEntries(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"url":"","method":"POST","body":{"message":{"intent":{"item":{"tags":[{"list":[{"descriptor":{"code":"pet-friendly"},"value":"yes"}]}]}}}}}`,
	}}
	c := pipeline.NewComposer(provider, zerolog.Nop())

	result := c.Compose(context.Background(), "find pet-friendly hotels near Bangalore",
		testSchema(models.ActionSearch), testEnvelope(models.ActionSearch), hospitalityPolicy(), models.Profile{}, nil)

	require.True(t, result.Status)

	intent := result.Request.Body.Message["intent"].(map[string]any)
	item := intent["item"].(map[string]any)
	tags := item["tags"].([]any)
	list := tags[0].(map[string]any)["list"].([]any)
	entry := list[0].(map[string]any)
	descriptor := entry["descriptor"].(map[string]any)

	assert.Equal(t, "pet-friendly", descriptor["code"])
	assert.Equal(t, "yes", entry["value"])
}

func TestComposeStripsEmptyFields(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"url":"","method":"POST","body":{"message":{"intent":{"item":{"descriptor":{"name":""}},"fulfillment":{"stops":[]}},"order":null}}}`,
	}}
	c := pipeline.NewComposer(provider, zerolog.Nop())

	result := c.Compose(context.Background(), "find hotels",
		testSchema(models.ActionSearch), testEnvelope(models.ActionSearch), hospitalityPolicy(), models.Profile{}, nil)

	// Everything in the message was empty, so composition reports failure
	// rather than sending a hollow request.
	assert.False(t, result.Status)
}

func TestComposeMalformedOutputFails(t *testing.T) {
	provider := &fakeProvider{responses: []string{"this is not json"}}
	c := pipeline.NewComposer(provider, zerolog.Nop())

	result := c.Compose(context.Background(), "find hotels",
		testSchema(models.ActionSearch), testEnvelope(models.ActionSearch), hospitalityPolicy(), models.Profile{}, nil)

	assert.False(t, result.Status)
	assert.Nil(t, result.Request)
	assert.NotEmpty(t, result.Message)
}

func TestComposeMissingBodyFails(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"url":"x","method":"POST"}`}}
	c := pipeline.NewComposer(provider, zerolog.Nop())

	result := c.Compose(context.Background(), "find hotels",
		testSchema(models.ActionSearch), testEnvelope(models.ActionSearch), hospitalityPolicy(), models.Profile{}, nil)

	assert.False(t, result.Status)
	assert.Nil(t, result.Request)
}
