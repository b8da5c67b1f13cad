package models

// Action is one of the network protocol actions the service understands.
type Action string

const (
	ActionSearch    Action = "search"
	ActionSelect    Action = "select"
	ActionInit      Action = "init"
	ActionConfirm   Action = "confirm"
	ActionClearChat Action = "clear_chat"
	ActionClearAll  Action = "clear_all"
)

// OrderActions is the protocol ordering for one transaction lifecycle.
var OrderActions = []Action{ActionSearch, ActionSelect, ActionInit, ActionConfirm}

// ParseAction maps a raw string onto the closed action set.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionSearch, ActionSelect, ActionInit, ActionConfirm, ActionClearChat, ActionClearAll:
		return Action(s), true
	}
	return "", false
}

// IsOrderAction reports whether the action is part of the
// search > select > init > confirm transaction flow.
func (a Action) IsOrderAction() bool {
	for _, oa := range OrderActions {
		if a == oa {
			return true
		}
	}
	return false
}

// ConversationMessage is one turn of conversation as carried on the wire.
type ConversationMessage struct {
	Role    string `json:"role"` // "user", "assistant" or "system"
	Message string `json:"message"`
}

// ChatRequest is the inbound transport request carrying one user message.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Recipient string `json:"recipient,omitempty"` // phone-number-like address for outbound delivery
	Message   string `json:"message"`
}

// ChatResponse is the transport reply for one processed turn.
type ChatResponse struct {
	SessionID    string  `json:"session_id"`
	Status       bool    `json:"status"`
	Message      string  `json:"message"`
	Action       *string `json:"action,omitempty"`
	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// TurnResult is the outcome of one orchestrated turn.
type TurnResult struct {
	Status  bool           `json:"status"`
	Message string         `json:"message"`
	Action  *Action        `json:"action,omitempty"`
	Raw     map[string]any `json:"raw,omitempty"`
}

// Error codes
const (
	ErrorParse    = "PARSE_ERROR"
	ErrorLLM      = "LLM_FAILED"
	ErrorCompose  = "COMPOSE_FAILED"
	ErrorNetwork  = "NETWORK_FAILED"
	ErrorNarrate  = "NARRATE_FAILED"
	ErrorOrdering = "ORDER_FLOW_VIOLATION"
)
