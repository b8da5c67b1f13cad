package models

import "encoding/json"

// Envelope is the protocol context block accompanying every request.
// message_id is fresh per request; transaction_id is stable across one
// order lifecycle (search > select > init > confirm).
type Envelope struct {
	Domain        string `json:"domain"`
	Action        string `json:"action"`
	Version       string `json:"version"`
	BapID         string `json:"bap_id"`
	BapURI        string `json:"bap_uri"`
	BppID         string `json:"bpp_id,omitempty"`
	BppURI        string `json:"bpp_uri,omitempty"`
	TransactionID string `json:"transaction_id"`
	MessageID     string `json:"message_id"`
	Timestamp     string `json:"timestamp"`
}

// AsMap renders the envelope as a generic JSON object so it can replace a
// model-generated context block inside a request body.
func (e Envelope) AsMap() map[string]any {
	raw, _ := json.Marshal(e)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out
}

// RequestBody is the body of a protocol request: authoritative context plus
// a schema-shaped message intent.
type RequestBody struct {
	Context Envelope       `json:"context"`
	Message map[string]any `json:"message"`
}

// ProtocolRequest is a fully composed network request, produced once per
// turn and never retried automatically.
type ProtocolRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    RequestBody       `json:"body"`
}

// CompressedItem is a catalog item reduced for narration.
type CompressedItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CompressedProvider is a provider reduced for narration. BppID and BppURI
// come from the provider's own response context, never from a sibling.
type CompressedProvider struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	BppID  string           `json:"bpp_id,omitempty"`
	BppURI string           `json:"bpp_uri,omitempty"`
	Items  []CompressedItem `json:"items"`
}

// CompressedResponse is the minimal structure handed to the narrator after
// a search. Providers without items are dropped.
type CompressedResponse struct {
	Providers []CompressedProvider `json:"providers"`
}
