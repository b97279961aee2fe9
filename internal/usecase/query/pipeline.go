package query

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/domain/repository"
	"github.com/policysage/policysage-api/internal/infrastructure/metrics"
)

// Outcomes recorded per question.
const (
	OutcomeAnswered         = "answered"
	OutcomeNoMatches        = "no_matches"
	OutcomeEmptyResponse    = "empty_response"
	OutcomeGraphUnavailable = "graph_unavailable"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeInvalidQuestion  = "invalid_question"
)

// Event is one step of a streamed answer.
type Event struct {
	Type    string `json:"type"` // "source", "answer", "error"
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
	TurnID  string `json:"turn_id,omitempty"`
}

// Pipeline answers one question end to end: retrieve, format, prompt, render.
type Pipeline struct {
	graph     repository.GraphRepository
	formatter *Formatter
	answerer  *Answerer
	metrics   *metrics.Metrics
}

// NewPipeline wires the pipeline. m may be nil.
func NewPipeline(graph repository.GraphRepository, profile model.Profile, answerer *Answerer, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		graph:     graph,
		formatter: NewFormatter(profile),
		answerer:  answerer,
		metrics:   m,
	}
}

// Ask processes a single question synchronously.
func (p *Pipeline) Ask(ctx context.Context, question string) model.ChatTurn {
	return p.run(ctx, question, nil)
}

// Stream processes a question and reports its detail blocks as "source"
// events before the final "answer" event. A failed turn emits only the
// "error" event. The channel is closed when the turn is complete.
func (p *Pipeline) Stream(ctx context.Context, question string, events chan<- Event) {
	defer close(events)

	turn := p.run(ctx, question, func(details []string) {
		for _, d := range details {
			events <- Event{Type: "source", Content: d}
		}
	})

	if turn.Failed() {
		events <- Event{Type: "error", Content: turn.Answer, Kind: string(turn.Failure.Kind), TurnID: turn.ID}
		return
	}
	events <- Event{Type: "answer", Content: turn.Answer, TurnID: turn.ID}
}

func (p *Pipeline) run(ctx context.Context, question string, onDetails func([]string)) model.ChatTurn {
	question = strings.TrimSpace(question)
	if question == "" {
		p.metrics.ObserveQuestion(OutcomeInvalidQuestion)
		return model.NewFailedTurn(question, model.FailureInvalidQuestion, model.InvalidAnswer)
	}

	log.Printf("[Pipeline] Processing question (%d chars)", len(question))

	start := time.Now()
	matches, err := p.graph.FetchMatches(ctx, question)
	p.metrics.ObserveStage(metrics.StageRetrieve, time.Since(start))
	if err != nil {
		log.Printf("[Pipeline] Retrieval failed: %v", err)
		p.metrics.ObserveQuestion(OutcomeGraphUnavailable)
		return model.NewFailedTurn(question, model.FailureGraphUnavailable, model.GraphFailureAnswer)
	}
	p.metrics.ObserveMatches(len(matches))

	if len(matches) == 0 {
		log.Printf("[Pipeline] No matches found")
		p.metrics.ObserveQuestion(OutcomeNoMatches)
		return model.NewAnsweredTurn(question, model.NoMatchesAnswer, nil)
	}

	contextBlock, details := p.formatter.Format(matches)

	start = time.Now()
	answer, failure := p.answerer.Answer(ctx, question, contextBlock)
	p.metrics.ObserveStage(metrics.StageGenerate, time.Since(start))
	if failure != nil {
		p.metrics.ObserveQuestion(OutcomeModelUnavailable)
		return model.NewFailedTurn(question, failure.Kind, answer)
	}

	// Failed turns carry no details, so sources are only reported once the
	// model has answered.
	if onDetails != nil {
		onDetails(details)
	}

	if answer == model.EmptyResponseAnswer {
		p.metrics.ObserveQuestion(OutcomeEmptyResponse)
	} else {
		p.metrics.ObserveQuestion(OutcomeAnswered)
	}
	log.Printf("[Pipeline] Answered with %d detail blocks", len(details))
	return model.NewAnsweredTurn(question, answer, details)
}
