package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Route names the model family a prompt is sent to.
type Route string

const (
	RouteRemote Route = "remote"
	RouteLocal  Route = "local"
)

// complexWordLimit is the word count above which a prompt counts as complex.
const complexWordLimit = 35

// ReasoningKeywords mark a prompt as needing the heavyweight model.
var ReasoningKeywords = []string{
	"analisis", "bandingkan", "menurutmu", "jelaskan", "pendapat", "hubungan",
	"analyze", "analysis", "compare", "explain", "opinion", "relationship",
}

// IsComplex reports whether text contains a reasoning keyword
// (case-insensitive substring) or has more than 35 words.
func IsComplex(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range ReasoningKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return len(strings.Fields(text)) > complexWordLimit
}

// GenerationError reports a failed generation on one route.
type GenerationError struct {
	Route Route
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate via %s (%s): %v", e.Route, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Reply is generated text and the route that produced it.
type Reply struct {
	Text  string
	Route Route
	Model string
}

// Router sends complex prompts to the remote model and simple ones to the
// local model. The routes fail independently; there is no cross-fallback.
type Router struct {
	remote Generator
	local  Generator
	system string
	logger *slog.Logger
}

// NewRouter creates a router. Either generator may be nil, in which case
// prompts routed to it fail with a GenerationError.
func NewRouter(remote, local Generator, system string, logger *slog.Logger) *Router {
	return &Router{remote: remote, local: local, system: system, logger: logger}
}

// Route classifies text.
func (r *Router) Route(text string) Route {
	if IsComplex(text) {
		return RouteRemote
	}
	return RouteLocal
}

// Generate classifies text and generates a reply on the selected route.
func (r *Router) Generate(ctx context.Context, text string) (Reply, error) {
	route := r.Route(text)
	gen := r.local
	if route == RouteRemote {
		gen = r.remote
	}
	if gen == nil {
		return Reply{}, &GenerationError{Route: route, Model: string(route), Err: errors.New("no model configured")}
	}

	out, err := gen.Generate(ctx, r.system, text)
	if err != nil {
		r.logger.Warn("generation failed", "route", route, "model", gen.Model(), "error", err)
		return Reply{}, &GenerationError{Route: route, Model: gen.Model(), Err: err}
	}

	r.logger.Debug("generated reply", "route", route, "model", gen.Model())
	return Reply{Text: out, Route: route, Model: gen.Model()}, nil
}

// SelectAndGenerate is Generate for callers that want plain text: a failure
// becomes a diagnostic marker "[ERROR <model>]: <cause>".
func (r *Router) SelectAndGenerate(ctx context.Context, text string) string {
	reply, err := r.Generate(ctx, text)
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return fmt.Sprintf("[ERROR %s]: %v", genErr.Model, genErr.Err)
		}
		return fmt.Sprintf("[ERROR]: %v", err)
	}
	return reply.Text
}
