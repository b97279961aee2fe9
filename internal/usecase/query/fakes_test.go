package query

import (
	"context"
	"strings"

	"github.com/policysage/policysage-api/internal/domain/model"
)

// fakeGraph matches questions against an in-memory dataset by
// case-insensitive substring, capped at limit.
type fakeGraph struct {
	dataset []model.Match
	limit   int
	err     error
	calls   int
}

func (g *fakeGraph) FetchMatches(ctx context.Context, question string) ([]model.Match, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	var out []model.Match
	for _, m := range g.dataset {
		if strings.Contains(strings.ToLower(m.PrimaryText), strings.ToLower(question)) {
			out = append(out, m)
		}
		if g.limit > 0 && len(out) == g.limit {
			break
		}
	}
	return out, nil
}

func (g *fakeGraph) Close(ctx context.Context) error { return nil }

type fakeLLM struct {
	resp    string
	err     error
	prompts []string
}

func (m *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.resp, nil
}

func (m *fakeLLM) Name() string { return "fake" }

var loanPolicy = model.Match{
	PrimaryText:    "Loan policy requires minimum credit score of 650",
	SourceDocument: "loans.pdf",
}
