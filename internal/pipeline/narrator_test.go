package pipeline_test

import (
	"context"
	"testing"

	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/avvvet/beckn-intent/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrateEmptyResponse(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{}, zerolog.Nop())

	result := n.Narrate(context.Background(), models.ActionSearch, nil, nil, models.Profile{})

	assert.False(t, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestNarrateSearchAppendsSelectPrompt(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{responses: []string{"Found 2 hotels: Cozy Stays and Hilltop Camp."}}, zerolog.Nop())

	result := n.Narrate(context.Background(), models.ActionSearch,
		map[string]any{"providers": []any{}}, nil, models.Profile{})

	require.True(t, result.Status)
	assert.Contains(t, result.Message, "Cozy Stays")
	assert.Contains(t, result.Message, "select")
}

func TestNarrateSelectRequestsMissingBillingDetails(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{responses: []string{"You picked the Deluxe Room at Cozy Stays."}}, zerolog.Nop())
	profile := models.Profile{"name": "Alex"} // email and phone missing

	result := n.Narrate(context.Background(), models.ActionSelect,
		map[string]any{"order": map[string]any{}}, nil, profile)

	require.True(t, result.Status)
	assert.Contains(t, result.Message, "billing details")
	assert.Contains(t, result.Message, "email")
	assert.Contains(t, result.Message, "phone")
	assert.NotContains(t, result.Message, "(name")
}

func TestNarrateSelectCompleteProfile(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{responses: []string{"You picked the Deluxe Room."}}, zerolog.Nop())
	profile := models.Profile{"name": "Alex", "email": "alex@example.org", "phone": "+100"}

	result := n.Narrate(context.Background(), models.ActionSelect,
		map[string]any{"order": map[string]any{}}, nil, profile)

	require.True(t, result.Status)
	assert.NotContains(t, result.Message, "billing details")
	assert.Contains(t, result.Message, "initiate")
}

func TestNarrateInitPromptsConfirm(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{responses: []string{"Your draft order is ready."}}, zerolog.Nop())

	result := n.Narrate(context.Background(), models.ActionInit,
		map[string]any{"order": map[string]any{}}, nil, models.Profile{})

	require.True(t, result.Status)
	assert.Contains(t, result.Message, "confirm")
}

func TestNarrateConfirmStatesOrderID(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{responses: []string{"Your booking is confirmed."}}, zerolog.Nop())
	response := map[string]any{
		"responses": []any{
			map[string]any{"message": map[string]any{"order_id": "ORD123"}},
		},
	}

	result := n.Narrate(context.Background(), models.ActionConfirm, response, nil, models.Profile{})

	require.True(t, result.Status)
	assert.Contains(t, result.Message, "ORD123")
	assert.Contains(t, result.Message, "successfully")
}

func TestNarrateConfirmNestedOrderObject(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{responses: []string{"Confirmed."}}, zerolog.Nop())
	response := map[string]any{
		"responses": []any{
			map[string]any{"message": map[string]any{"order": map[string]any{"id": "ORD456"}}},
		},
	}

	result := n.Narrate(context.Background(), models.ActionConfirm, response, nil, models.Profile{})

	require.True(t, result.Status)
	assert.Contains(t, result.Message, "ORD456")
}

func TestNarrateErrorShapedResponse(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{responses: []string{"The provider could not process the order."}}, zerolog.Nop())
	response := map[string]any{
		"error": map[string]any{"code": "40002", "message": "internal pricing engine panic"},
	}

	result := n.Narrate(context.Background(), models.ActionConfirm, response, nil, models.Profile{})

	assert.False(t, result.Status)
	assert.True(t, result.UpstreamError, "a summarized upstream error is not a narration failure")
	assert.Equal(t, "The provider could not process the order.", result.Message)
}

func TestNarrateErrorNarrationFallback(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{responses: []string{""}}, zerolog.Nop())
	response := map[string]any{"error": map[string]any{"code": "50001"}}

	result := n.Narrate(context.Background(), models.ActionSelect, response, nil, models.Profile{})

	assert.False(t, result.Status)
	assert.True(t, result.UpstreamError)
	assert.NotEmpty(t, result.Message)
}

func TestNarrateModelFailureYieldsApology(t *testing.T) {
	n := pipeline.NewNarrator(&fakeProvider{}, zerolog.Nop())

	result := n.Narrate(context.Background(), models.ActionSearch,
		map[string]any{"providers": []any{}}, nil, models.Profile{})

	assert.False(t, result.Status)
	assert.False(t, result.UpstreamError, "a broken narration is not an upstream error")
	assert.NotEmpty(t, result.Message)
}
