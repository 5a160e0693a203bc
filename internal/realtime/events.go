package realtime

// Server events emitted on the realtime data channel.
const (
	// EventQuestionSpoken carries the transcript of what the interviewer just said.
	EventQuestionSpoken = "response.audio_transcript.done"
	// EventAnswerDelta carries a partial transcription of the candidate's answer.
	EventAnswerDelta = "conversation.item.input_audio_transcription.delta"
	// EventAnswerCompleted carries the final transcription of the candidate's answer.
	EventAnswerCompleted = "conversation.item.input_audio_transcription.completed"
	// EventTurnEnded is emitted when the interviewer's audio finished playing.
	EventTurnEnded = "output_audio_buffer.stopped"
	EventError     = "error"
)

// Client events sent on the realtime data channel.
const (
	EventSessionUpdate      = "session.update"
	EventConversationCreate = "conversation.item.create"
	EventResponseCreate     = "response.create"
)

// ServerEvent is the subset of a realtime server event the interview flow reads.
type ServerEvent struct {
	Type         string       `json:"type"`
	EventID      string       `json:"event_id,omitempty"`
	ItemID       string       `json:"item_id,omitempty"`
	ResponseID   string       `json:"response_id,omitempty"`
	ContentIndex int          `json:"content_index,omitempty"`
	Transcript   string       `json:"transcript,omitempty"`
	Delta        string       `json:"delta,omitempty"`
	Error        *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failure reported by the realtime service in an error event.
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ClientEvent is a message sent to the realtime service over the data channel.
type ClientEvent struct {
	Type    string            `json:"type"`
	Session *SessionSettings  `json:"session,omitempty"`
	Item    *ConversationItem `json:"item,omitempty"`
}

type SessionSettings struct {
	Modalities              []string       `json:"modalities,omitempty"`
	Instructions            string         `json:"instructions,omitempty"`
	InputAudioTranscription *Transcription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection `json:"turn_detection,omitempty"`
}

type Transcription struct {
	Model string `json:"model"`
}

type TurnDetection struct {
	Type              string `json:"type"`
	SilenceDurationMS int    `json:"silence_duration_ms,omitempty"`
}

type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SessionUpdate enables audio and text output and selects the transcription model for the candidate's audio.
func SessionUpdate(transcriptionModel string) ClientEvent {
	settings := SessionSettings{Modalities: []string{"audio", "text"}}
	if transcriptionModel != "" {
		settings.InputAudioTranscription = &Transcription{Model: transcriptionModel}
	}
	return ClientEvent{Type: EventSessionUpdate, Session: &settings}
}

// UserText creates a user message carrying text, used for the interview instructions.
func UserText(text string) ClientEvent {
	return ClientEvent{
		Type: EventConversationCreate,
		Item: &ConversationItem{
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

// ResponseCreate asks the service to produce a response.
func ResponseCreate() ClientEvent {
	return ClientEvent{Type: EventResponseCreate}
}
