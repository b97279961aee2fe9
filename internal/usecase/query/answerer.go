package query

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/domain/repository"
	"github.com/policysage/policysage-api/internal/infrastructure/llm"
	"github.com/policysage/policysage-api/internal/infrastructure/resilience"
)

// Answerer sends the grounded prompt to the model. A failed call is final
// for the request; nothing is retried.
type Answerer struct {
	client  repository.LLMClient
	breaker *resilience.CircuitBreaker
}

// NewAnswerer wraps client. breaker may be nil.
func NewAnswerer(client repository.LLMClient, breaker *resilience.CircuitBreaker) *Answerer {
	return &Answerer{client: client, breaker: breaker}
}

// Answer returns the trimmed model answer, the fixed fallback when the model
// returns nothing, or a model_unavailable failure.
func (a *Answerer) Answer(ctx context.Context, question, contextBlock string) (string, *model.Failure) {
	prompt := BuildPrompt(question, contextBlock)

	var text string
	call := func(ctx context.Context) error {
		var err error
		text, err = a.client.Generate(ctx, prompt)
		if errors.Is(err, llm.ErrEmptyResponse) {
			// An empty answer is a valid response, not a downstream failure.
			return nil
		}
		return err
	}

	var err error
	if a.breaker != nil {
		err = a.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}

	if err != nil {
		log.Printf("[Answerer] %s call failed: %v", a.client.Name(), err)
		msg := model.ModelFailureMessage(err)
		return msg, &model.Failure{Kind: model.FailureModelUnavailable, Message: msg}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return model.EmptyResponseAnswer, nil
	}
	return text, nil
}
