package api

import (
	"encoding/json"
	"net/http"

	"github.com/avvvet/beckn-intent/internal/backend"
	"github.com/avvvet/beckn-intent/internal/messaging"
	"github.com/rs/zerolog"
)

const (
	cancelBookingMessage = "Sorry, your booking had to be cancelled by the hotel. Please reach out to us for rebooking options."
	newCatalogMessage    = "Good news! An updated catalog is available. Search again to see the latest options."
	defaultNotifyMessage = "We have an important update about your area. Please check your bookings."
)

// Handlers carries the webhook dependencies.
type Handlers struct {
	backend          *backend.Client
	sender           messaging.Sender
	defaultRecipient string
	logger           zerolog.Logger
}

func NewHandlers(backendClient *backend.Client, sender messaging.Sender, defaultRecipient string, logger zerolog.Logger) *Handlers {
	return &Handlers{
		backend:          backendClient,
		sender:           sender,
		defaultRecipient: defaultRecipient,
		logger:           logger.With().Str("component", "api").Logger(),
	}
}

type cancelBookingRequest struct {
	OrderID string `json:"orderId"`
}

// CancelBooking validates the order, marks its fulfillment cancelled in
// the backend and notifies the guest over messaging.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Order Id is Required", "status": false})
		return
	}

	ctx := r.Context()

	if _, err := h.backend.GetOrder(ctx, req.OrderID); err != nil {
		h.logger.Error().Err(err).Str("order", req.OrderID).Msg("order lookup failed")
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid Order Id", "status": false})
		return
	}

	fulfillments, err := h.backend.OrderFulfillments(ctx, req.OrderID)
	if err != nil || len(fulfillments) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Cancel Booking Failed", "status": false})
		return
	}

	if err := h.backend.CancelFulfillment(ctx, fulfillments[0].ID, "CANCELLED BY HOTEL"); err != nil {
		h.logger.Error().Err(err).Str("order", req.OrderID).Msg("fulfillment cancel failed")
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error(), "status": false})
		return
	}

	recipient := h.defaultRecipient
	if addresses, err := h.backend.OrderAddresses(ctx, req.OrderID); err == nil && len(addresses) > 0 {
		if phone := addresses[0].Phone(); phone != "" {
			recipient = "+91" + phone
		}
	}

	status := "delivered"
	if err := h.sender.Send(ctx, recipient, cancelBookingMessage); err != nil {
		h.logger.Error().Err(err).Msg("cancellation notice failed")
		status = "failed"
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Notification " + status, "status": true})
}

type updateCatalogRequest struct {
	UserNo       string `json:"userNo"`
	ItemID       int    `json:"itemId"`
	ItemName     string `json:"itemName"`
	TagRelations []int  `json:"tagRelations"`
}

// UpdateCatalog pushes a catalog change to the backend and notifies a user
// that new options are available.
func (h *Handlers) UpdateCatalog(w http.ResponseWriter, r *http.Request) {
	var req updateCatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid request body", "status": false})
		return
	}

	ctx := r.Context()

	if err := h.backend.UpdateItem(ctx, req.ItemID, req.ItemName, req.TagRelations); err != nil {
		h.logger.Error().Err(err).Int("item", req.ItemID).Msg("catalog update failed")
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error(), "status": false})
		return
	}

	recipient := req.UserNo
	if recipient == "" {
		recipient = h.defaultRecipient
	}
	if err := h.sender.Send(ctx, recipient, newCatalogMessage); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Notification Failed", "status": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Catalog Updated", "status": true})
}

type notifyRequest struct {
	UserNo  string `json:"userNo"`
	Message string `json:"message"`
}

// Notify sends an ad-hoc operator notification over messaging.
func (h *Handlers) Notify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid request body", "status": false})
		return
	}

	recipient := req.UserNo
	if recipient == "" {
		recipient = h.defaultRecipient
	}
	message := req.Message
	if message == "" {
		message = defaultNotifyMessage
	}

	if err := h.sender.Send(r.Context(), recipient, message); err != nil {
		h.logger.Error().Err(err).Str("recipient", recipient).Msg("notify failed")
		writeJSON(w, http.StatusBadRequest, map[string]any{"deliveryStatus": "failed", "status": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deliveryStatus": "delivered", "status": true})
}
