package model

// ChatRequest is the inbound payload for POST /chat. The session ID is an
// opaque key chosen by the caller; when it is empty the server assigns one
// and returns it in the response.
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"max=128"`
	Message   string `json:"message" validate:"required,max=4096"`
}

// ChatResponse is the reply for POST /chat.
type ChatResponse struct {
	Reply            string   `json:"reply"`
	SessionID        string   `json:"session_id"`
	BookingConfirmed bool     `json:"booking_confirmed"`
	Booking          *Booking `json:"booking,omitempty"`
}

// ChatResult is what the booking agent hands back to the transport layer
// after one turn.
type ChatResult struct {
	Reply            string
	Node             Node
	BookingConfirmed bool
	Booking          *Booking
}

// AvailabilityResponse lists the free slots for one date.
type AvailabilityResponse struct {
	Date  string     `json:"date"`
	Slots []TimeSlot `json:"available_slots"`
}

// HistoryResponse is the reply for GET /chat/{session_id}/history.
type HistoryResponse struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
}
