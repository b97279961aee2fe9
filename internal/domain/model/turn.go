package model

import (
	"time"

	"github.com/google/uuid"
)

// Fixed user-facing answers.
const (
	NoMatchesAnswer     = "I couldn't find specific details in the policy. Can you rephrase or ask a different question?"
	EmptyResponseAnswer = "No relevant information was found."
	GraphFailureAnswer  = "The policy database could not be reached. Please try again later."
	InvalidAnswer       = "Please enter a question."
	modelFailurePrefix  = "An error occurred while retrieving data: "
)

// FailureKind classifies why a turn did not produce a model answer.
type FailureKind string

const (
	FailureGraphUnavailable FailureKind = "graph_unavailable"
	FailureModelUnavailable FailureKind = "model_unavailable"
	FailureInvalidQuestion  FailureKind = "invalid_question"
)

// Failure is the error half of a turn's result.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// ModelFailureMessage formats the answer shown when the model call fails.
func ModelFailureMessage(err error) string {
	return modelFailurePrefix + err.Error()
}

// ChatTurn is the outcome of one submitted question. It is not retained
// after it has been rendered.
type ChatTurn struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Details   []string  `json:"details"`
	Failure   *Failure  `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAnsweredTurn builds a successful turn.
func NewAnsweredTurn(question, answer string, details []string) ChatTurn {
	if details == nil {
		details = []string{}
	}
	return ChatTurn{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    answer,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

// NewFailedTurn builds a turn whose answer is the user-facing failure text.
// Failed turns never carry details.
func NewFailedTurn(question string, kind FailureKind, answer string) ChatTurn {
	return ChatTurn{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    answer,
		Details:   []string{},
		Failure:   &Failure{Kind: kind, Message: answer},
		CreatedAt: time.Now().UTC(),
	}
}

// Failed reports whether the turn ended in an error.
func (t ChatTurn) Failed() bool {
	return t.Failure != nil
}

// HasDetails reports whether a details control should be offered.
func (t ChatTurn) HasDetails() bool {
	return len(t.Details) > 0
}
