// Package categorize assigns a category and tags to a transcript.
package categorize

import (
	"context"
	"strings"
)

// Result is the outcome of classifying one transcript.
type Result struct {
	MainCategory string
	SubCategory  *string
	Tags         []string
}

// Classifier scores a transcript. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
	Name() string
	Version() string
}

const (
	CategoryUnknown = "unknown"
	CategoryHealth  = "saúde & emagrecimento"
	CategoryFinance = "finanças & investimentos"
	CategoryEdu     = "educação & cursos"
)

type rule struct {
	category string
	tag      string
	keywords []string
}

// Checked in order; the first rule with a matching keyword wins.
var rules = []rule{
	{CategoryHealth, "saude", []string{"emagrecer", "peso", "dieta", "barriga"}},
	{CategoryFinance, "financas", []string{"dinheiro", "investir", "investimento", "ações", "bolsa"}},
	{CategoryEdu, "educacao", []string{"curso", "aula", "treinamento", "mentoria"}},
}

var webinarKeywords = []string{"webinário", "webinar"}

// RuleBased is a keyword heuristic standing in for a trained model.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

func (RuleBased) Name() string    { return "rule_based_placeholder" }
func (RuleBased) Version() string { return "v0" }

func (RuleBased) Classify(_ context.Context, text string) (Result, error) {
	lower := strings.ToLower(text)

	res := Result{MainCategory: CategoryUnknown}
	tags := []string{"vsl", "long_form"}

	for _, r := range rules {
		if containsAny(lower, r.keywords) {
			res.MainCategory = r.category
			tags = append(tags, r.tag)
			break
		}
	}

	if containsAny(lower, webinarKeywords) {
		sub := "webinar"
		res.SubCategory = &sub
		tags = append(tags, "webinar")
	}

	res.Tags = dedupe(tags)
	return res, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// dedupe drops repeated tags, keeping first occurrences in order.
func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

var _ Classifier = RuleBased{}
