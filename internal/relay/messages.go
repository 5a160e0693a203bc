package relay

import (
	"encoding/json"

	"github.com/Manty2503/demo-final/internal/interview"
)

// Messages sent to the browser.
const (
	TypeInterviewStarted = "interview.started"
	TypeMediaAcquire     = "media.acquire"
	TypePeerConnect      = "peer.connect"
	TypePeerAnswer       = "peer.answer"
	TypeChannelSend      = "channel.send"
	TypeMediaStop        = "media.stop"
	TypePeerClose        = "peer.close"
	TypeStatus           = "status"
	TypeError            = "error"
)

// Messages received from the browser.
const (
	TypeMediaAcquired  = "media.acquired"
	TypeMediaError     = "media.error"
	TypePeerOffer      = "peer.offer"
	TypeChannelOpen    = "channel.open"
	TypeChannelMessage = "channel.message"
	TypeChannelClose   = "channel.close"
	TypeInterviewEnd   = "interview.end"
)

// Message is the envelope exchanged with the browser over the WebSocket.
type Message struct {
	Type        string            `json:"type"`
	InterviewID string            `json:"interviewId,omitempty"`
	Model       string            `json:"model,omitempty"`
	SDP         string            `json:"sdp,omitempty"`
	TrackIDs    []string          `json:"trackIds,omitempty"`
	Event       json.RawMessage   `json:"event,omitempty"`
	Status      *interview.Status `json:"status,omitempty"`
	Message     string            `json:"message,omitempty"`
}
