package interview

import (
	"fmt"
	"time"

	"github.com/Manty2503/demo-final/internal/models"
)

type State string

const (
	StateIdle            State = "idle"
	StateConnecting      State = "connecting"
	StateAwaitingChannel State = "awaiting_channel"
	StateAsking          State = "asking"
	StateListening       State = "listening"
	StateComplete        State = "complete"
	StateError           State = "error"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

// Status is a snapshot of the interview reported on every transition.
type Status struct {
	InterviewID   string             `json:"interviewId"`
	State         State              `json:"state"`
	Question      int                `json:"question"`
	QuestionCount int                `json:"questionCount"`
	QuestionText  string             `json:"questionText,omitempty"`
	Transcript    string             `json:"transcript,omitempty"`
	Answered      int                `json:"answered"`
	Step          string             `json:"step,omitempty"`
	Message       string             `json:"message,omitempty"`
	Evaluation    *models.Evaluation `json:"evaluation,omitempty"`
	Saved         bool               `json:"saved"`
}

// ChannelTimeoutError is returned when the data channel does not open in time.
type ChannelTimeoutError struct {
	Timeout time.Duration
}

func (e *ChannelTimeoutError) Error() string {
	return fmt.Sprintf("data channel did not open within %s", e.Timeout)
}

// Steps identify where an interview attempt failed.
const (
	StepCredential  = "credential"
	StepMedia       = "media"
	StepNegotiation = "negotiation"
	StepChannel     = "channel"
	StepConfigure   = "configure"
	StepTranscript  = "transcript"
	StepCanceled    = "canceled"
	StepEvaluation  = "evaluation"
	StepPersistence = "persistence"
)

var stepMessages = map[string]string{
	StepCredential:  "Could not create a realtime session. Please try again later.",
	StepMedia:       "Microphone access is required for the interview.",
	StepNegotiation: "Could not connect to the interviewer.",
	StepChannel:     "The connection to the interviewer did not open in time.",
	StepConfigure:   "Could not configure the interviewer.",
	StepTranscript:  "The interview transcript could not be recorded.",
	StepCanceled:    "The interview was interrupted.",
	StepEvaluation:  "The interview could not be evaluated. Your answers are kept.",
	StepPersistence: "The interview could not be saved.",
}

// UserMessage is the text shown to the candidate when the given step fails.
func UserMessage(step string) string {
	if msg, ok := stepMessages[step]; ok {
		return msg
	}
	return "Something went wrong."
}
