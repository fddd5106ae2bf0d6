package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iammorganparry/clive/apps/recall/internal/embedding"
	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

// User-facing messages.
const (
	NoKnowledgeMessage   = "Sorry, I haven't learned anything about this from you yet."
	NothingTaughtMessage = "You haven't taught me anything yet."
	fallbackIntro        = "I can't reach my main model right now, but I still remember a few important lessons:"
)

const (
	respondTopK          = 3
	fallbackContentLimit = 700
)

// Respond answers a message using the owner's most relevant memories as
// context. A successful exchange is logged as an interaction and stored as
// an interaction memory. When the chat model fails the reply falls back to
// the matched memories themselves, or to NoKnowledgeMessage when there are
// none.
func (s *Service) Respond(ctx context.Context, req *models.RespondRequest) (*models.RespondResponse, error) {
	owner, unit := strings.TrimSpace(req.Owner), strings.TrimSpace(req.Unit)
	msg := strings.TrimSpace(req.Message)
	if owner == "" || unit == "" || msg == "" {
		return nil, fmt.Errorf("%w: phone, unit and message are required", ErrInvalidRequest)
	}

	matched, query, err := s.retriever.findRelevant(ctx, msg, owner, unit, respondTopK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("retrieval failed, answering without memory context", "owner", owner, "error", err)
		matched = nil
	}

	resp := &models.RespondResponse{Status: "ok", Original: msg}

	if s.generator == nil {
		resp.Reply, resp.Fallback = fallbackReply(matched), true
		return resp, nil
	}

	system := s.opts.SystemPrompt + memoryContext(matched)
	reply, err := s.generator.Generate(ctx, system, msg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("generation failed, falling back to memory",
			"owner", owner,
			"model", s.generator.Model(),
			"matched", len(matched),
			"error", err,
		)
		resp.Reply, resp.Fallback = fallbackReply(matched), true
		return resp, nil
	}
	resp.Reply = reply

	s.recordInteraction(ctx, owner, unit, msg, reply, query)
	return resp, nil
}

// recordInteraction logs an answered message and teaches it back as an
// interaction memory. Failures are logged and never reach the caller.
func (s *Service) recordInteraction(ctx context.Context, owner, unit, msg, reply string, query *embedding.Result) {
	if err := s.users.Ensure(ctx, owner, unit); err != nil {
		s.logger.Warn("failed to record interaction", "owner", owner, "error", err)
		return
	}
	in := &models.Interaction{Owner: owner, Unit: unit, Input: msg, Reply: reply, Model: s.generator.Model()}
	if err := s.usage.Insert(ctx, in); err != nil {
		s.logger.Warn("failed to log interaction", "owner", owner, "error", err)
	}

	var known *knownVector
	if query != nil {
		known = &knownVector{text: msg, res: *query}
	}
	_, err := s.teachWithVector(ctx, &models.TeachRequest{
		Owner:   owner,
		Unit:    unit,
		Topic:   models.TopicInteraction,
		Content: msg,
	}, known)
	if err != nil {
		s.logger.Warn("failed to store interaction memory", "owner", owner, "error", err)
	}
}

func memoryContext(matched []models.ScoredMemory) string {
	if len(matched) == 0 {
		return "\n\n---\n\nI don't know this user yet, but I'm ready to learn from this conversation."
	}
	var b strings.Builder
	b.WriteString("\n\n---\n\nThings this user has taught me:")
	for _, sm := range matched {
		when := time.Unix(sm.Memory.CreatedAt, 0).UTC().Format("02 January 2006")
		content := strings.ReplaceAll(sm.Memory.Content, "\n", " ")
		fmt.Fprintf(&b, "\n- [%s] %s", when, content)
	}
	return b.String()
}

func fallbackReply(matched []models.ScoredMemory) string {
	if len(matched) == 0 {
		return NoKnowledgeMessage
	}
	parts := make([]string, 0, len(matched))
	for _, sm := range matched {
		parts = append(parts, fmt.Sprintf("Topic: %s\nContent: %s", sm.Memory.Topic, truncate(sm.Memory.Content, fallbackContentLimit)))
	}
	return fallbackIntro + "\n\n" + strings.Join(parts, "\n\n")
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
