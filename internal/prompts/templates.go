package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionDescription documents one supported protocol action for the
// classifier prompt.
type ActionDescription struct {
	Action      string `json:"action"`
	Description string `json:"description"`
}

// SupportedActions is the closed action set shown to the classifier.
var SupportedActions = []ActionDescription{
	{Action: "search", Description: "Perform a search for a service or product. If a service or product is not specified, its not a search. Listing all bookings is not a search."},
	{Action: "select", Description: "If the user likes or selects any item, this action should be used."},
	{Action: "init", Description: "If the user wants to place an order after search and select and has shared the billing details."},
	{Action: "confirm", Description: "Confirm an order. This action gets called when users confirms an order."},
	{Action: "clear_chat", Description: "If the user wants to clear the session or restart session or chat."},
	{Action: "clear_all", Description: "If the user wants to clear the complete session or the profile."},
}

// ClassifierMessages builds the system prompt block for action
// classification.
func ClassifierMessages() []string {
	actions, _ := json.Marshal(SupportedActions)
	return []string{
		fmt.Sprintf("Your job is to analyse the text input given by user and identify if that is an action based on given set of actions. The supported actions with their descriptions are : %s.", actions),
		`You must return a json in the following format {"action":"SOME_ACTION_OR_NULL", "response": "Should be response based on the query."}`,
		"If the instruction is an action, the action key should be set under 'action' otherwise action should be null and response should contain completion for the given text.",
		"If you are asked to prepare an itinerary or plan a trip, always ask for user preferences such as accommodation types, journey details, dietary preferences, things of interest, journey dates, journey destination, number of members, special requests.",
	}
}

// SchemaTranslationRules are the standing rules for turning an instruction
// plus schema into a protocol request body.
var SchemaTranslationRules = []string{
	`Your job is to identify the endpoint, method and request body from the given schema, based on the last user input and return the extracted details in the following JSON structure : {"url":"", "method":"", "body":{}}`,
	"A typical order flow should be search > select > init > confirm.",
	"Use the response of search from assistant to select items from the list of items provided by the assistant.",
	"Use the response of search request from assistant for filling transaction_id, bpp_id, bpp_uri in the context of all calls except `search`.",
	"For `select`, `init`, `confirm`, you must use the item `id` as part of the payload for selected item instead of name or any other key.",
	"For hotel booking, there should be two fulfillment stops, one for check-in and one for check-out.",
	"For search actions, you should check the network policy for supported tags and use them based on user preferences to prepare the search payload.",
}

// DomainGuidance holds per-domain composition rules, keyed by registry
// domain key.
var DomainGuidance = map[string][]string{
	"hospitality": {
		"For hospitality domain, in search intent, item.descriptor.name should not be used. Rely on tag-based filtering instead.",
		`Tags must be expressed as entries of message.intent.item.tags[].list with the shape {"descriptor":{"code":"some-tag"},"value":"yes"}.`,
		"For hospitality search by fulfillment, message.intent.fulfillment.stops must contain exactly two stops, one of type check-in and one of type check-out, each with a location and time.",
	},
}

// NarratorMessages builds the system prompt block for response narration.
func NarratorMessages(action string) []string {
	msgs := []string{
		"You will receive a JSON response from a commerce network. Create one meaningful, human-readable text message containing the useful information present in the JSON. Do not include technical identifiers, internal field names or stack traces.",
	}
	switch action {
	case "search":
		msgs = append(msgs, "Present a concise listing of the items found. For each item include name, price, rating, location and a one-line summary when available.")
	case "select":
		msgs = append(msgs, "Summarise the selected item with its quote or price breakup.")
	case "init":
		msgs = append(msgs, "Summarise the draft order, including billing and fulfillment details when available.")
	case "confirm":
		msgs = append(msgs, "Summarise the confirmed order.")
	}
	return msgs
}

// ErrorNarration is the prompt for summarising an error-shaped response.
const ErrorNarration = "The following JSON describes an error from a commerce network. Explain in one short, plain-language sentence what went wrong, without any technical or internal detail."

// ProfileExtraction is the prompt for incremental profile extraction.
const ProfileExtraction = `Extract user profile attributes from the given text. Known attributes include name, email, phone and travel preferences such as accommodation-type or dietary-preference. Return a JSON object mapping attribute names to string values. Only include an attribute if its value is unambiguous in the text and is new or more specific than the already known value. If nothing new is present, return {}.`

// FallbackMessage is shown when the service cannot make sense of a turn.
const FallbackMessage = "I didn't understand your request clearly. Could you please rephrase what you'd like me to help you with?"

// ApologyMessage is shown when narration fails outright.
const ApologyMessage = "I'm sorry, I ran into a problem preparing the reply. Please try again."

// ExtractJSON pulls the outermost JSON object out of a model response that
// may carry surrounding prose.
func ExtractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return ""
	}
	return content[start : end+1]
}
