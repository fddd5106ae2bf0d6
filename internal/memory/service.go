package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iammorganparry/clive/apps/recall/internal/embedding"
	"github.com/iammorganparry/clive/apps/recall/internal/llm"
	"github.com/iammorganparry/clive/apps/recall/internal/models"
	"github.com/iammorganparry/clive/apps/recall/internal/privacy"
	"github.com/iammorganparry/clive/apps/recall/internal/search"
	"github.com/iammorganparry/clive/apps/recall/internal/store"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrSelfLink       = errors.New("a memory cannot link to itself")
	// ErrNoGenerator is returned by operations that need a chat model when
	// none is configured.
	ErrNoGenerator = errors.New("no generator configured")
)

// Options tunes the service.
type Options struct {
	LinkThreshold float64
	DefaultTopK   int
	SystemPrompt  string
}

// Service is the main facade for all memory operations.
type Service struct {
	memories  *store.MemoryStore
	links     *store.LinkStore
	users     *store.UserStore
	usage     *store.UsageStore
	embedder  VectorSource
	retriever *Retriever
	linker    *AutoLinker
	generator llm.Generator
	opts      Options
	logger    *slog.Logger
}

// NewService creates a memory service. generator may be nil, in which case
// Respond always answers from memory and CompareUnits is unavailable.
func NewService(
	memories *store.MemoryStore,
	links *store.LinkStore,
	users *store.UserStore,
	usage *store.UsageStore,
	embedder VectorSource,
	generator llm.Generator,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.LinkThreshold <= 0 {
		opts.LinkThreshold = DefaultLinkThreshold
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 3
	}
	return &Service{
		memories:  memories,
		links:     links,
		users:     users,
		usage:     usage,
		embedder:  embedder,
		retriever: NewRetriever(memories, embedder, logger),
		linker:    NewAutoLinker(memories, links, logger),
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Teach stores a memory for its owner, embedding it when possible, and links
// it to the owner's similar memories. <private> sections are removed from
// the content first. If no embedding tier is available the memory is stored
// without a vector.
func (s *Service) Teach(ctx context.Context, req *models.TeachRequest) (*models.TeachResponse, error) {
	return s.teachWithVector(ctx, req, nil)
}

// knownVector is an embedding already computed for text.
type knownVector struct {
	text string
	res  embedding.Result
}

// teachWithVector is Teach that reuses known when it was computed for the
// exact content being stored, instead of embedding it again.
func (s *Service) teachWithVector(ctx context.Context, req *models.TeachRequest, known *knownVector) (*models.TeachResponse, error) {
	owner, unit := strings.TrimSpace(req.Owner), strings.TrimSpace(req.Unit)
	topic := strings.TrimSpace(req.Topic)
	content, redacted := privacy.Redact(req.Content)
	switch {
	case owner == "":
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidRequest)
	case unit == "":
		return nil, fmt.Errorf("%w: unit is required", ErrInvalidRequest)
	case topic == "":
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	case content == "" && redacted:
		return nil, fmt.Errorf("%w: content is empty once private sections are removed", ErrInvalidRequest)
	case content == "":
		return nil, fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}

	m := &models.Memory{
		Owner:    owner,
		Unit:     unit,
		Topic:    topic,
		Content:  content,
		Priority: req.Priority,
		Tags:     req.Tags,
		Emotion:  strings.TrimSpace(req.Emotion),
	}
	resp := &models.TeachResponse{Memory: m, Links: []models.MemoryLink{}}

	var (
		res embedding.Result
		err error
	)
	if known != nil && known.text == content {
		res = known.res
	} else {
		res, err = s.embedder.Embed(ctx, content)
	}
	switch {
	case err == nil:
		m.Embedding = search.EncodeVector(res.Vector)
		m.EmbeddingModel = res.Model
	case errors.Is(err, embedding.ErrEmbeddingUnavailable):
		s.logger.Warn("storing memory without embedding", "owner", owner, "error", err)
		resp.EmbeddingSkipped = true
	default:
		return nil, fmt.Errorf("embed memory: %w", err)
	}

	if err := s.users.Ensure(ctx, owner, unit); err != nil {
		return nil, err
	}
	if err := s.memories.Insert(ctx, m); err != nil {
		return nil, err
	}

	links, err := s.linker.LinkNewMemory(ctx, m, s.opts.LinkThreshold)
	if err != nil {
		s.logger.Warn("auto-link incomplete", "memory_id", m.ID, "error", err)
	}
	resp.Links = append(resp.Links, links...)

	s.logger.Info("memory stored",
		"id", m.ID,
		"owner", owner,
		"unit", unit,
		"model", m.EmbeddingModel,
		"links", len(resp.Links),
	)
	return resp, nil
}

// Search returns the memories of (owner, unit) most relevant to the query.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Unit) == "" {
		return nil, fmt.Errorf("%w: unit is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.opts.DefaultTopK
	}

	results, err := s.retriever.FindRelevant(ctx, req.Query, req.Owner, req.Unit, topK)
	if err != nil {
		return nil, err
	}
	resp := &models.SearchResponse{Results: results}
	if len(results) == 0 {
		resp.Message = NoKnowledgeMessage
	}
	return resp, nil
}

// GetByID returns a memory or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	m, err := s.memories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	return m, nil
}

// List returns an owner's memories, restricted to unit when it is set.
func (s *Service) List(ctx context.Context, owner, unit string) ([]*models.Memory, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidRequest)
	}
	var (
		mems []*models.Memory
		err  error
	)
	if unit == "" {
		mems, err = s.memories.ListByOwner(ctx, owner)
	} else {
		mems, err = s.memories.ListByOwnerUnit(ctx, owner, unit)
	}
	if err != nil {
		return nil, err
	}
	if mems == nil {
		mems = []*models.Memory{}
	}
	return mems, nil
}

// Link creates a manual link from sourceID. Kind defaults to "reinforces"
// and weight to 1.
func (s *Service) Link(ctx context.Context, sourceID string, req *models.LinkRequest) (*models.MemoryLink, error) {
	if req.TargetID == "" {
		return nil, fmt.Errorf("%w: targetId is required", ErrInvalidRequest)
	}
	if sourceID == req.TargetID {
		return nil, ErrSelfLink
	}

	weight := 1
	if req.Weight != nil {
		weight = *req.Weight
	}
	if weight < 0 || weight > 100 {
		return nil, fmt.Errorf("%w: weight must be between 0 and 100, got %d", ErrInvalidRequest, weight)
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = models.LinkKindReinforces
	}

	for _, id := range []string{sourceID, req.TargetID} {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	link := &models.MemoryLink{SourceID: sourceID, TargetID: req.TargetID, Kind: kind, Weight: weight}
	if err := s.links.Insert(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Linked returns the outgoing links of a memory with their target memories.
func (s *Service) Linked(ctx context.Context, id string) ([]models.LinkedMemory, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	links, err := s.links.ListFrom(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]models.LinkedMemory, 0, len(links))
	for _, l := range links {
		target, err := s.memories.GetByID(ctx, l.TargetID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			continue
		}
		out = append(out, models.LinkedMemory{Link: l, Memory: target})
	}
	return out, nil
}

// Recap lists the topics owner has taught within unit.
func (s *Service) Recap(ctx context.Context, owner, unit string) (*models.RecapResponse, error) {
	if owner == "" || unit == "" {
		return nil, fmt.Errorf("%w: phone and unit are required", ErrInvalidRequest)
	}
	counts, err := s.memories.TopicCounts(ctx, owner, unit)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return &models.RecapResponse{Summary: NothingTaughtMessage, Topics: []models.TopicCount{}}, nil
	}

	var b strings.Builder
	b.WriteString("You have taught me these topics:")
	for _, c := range counts {
		fmt.Fprintf(&b, "\n- %s (%d)", c.Topic, c.Count)
	}
	return &models.RecapResponse{Summary: b.String(), Topics: counts}, nil
}

// Insights aggregates memories created in the last days days, optionally
// restricted to unit.
func (s *Service) Insights(ctx context.Context, unit string, days int) (*models.InsightsResponse, error) {
	if days <= 0 {
		days = 7
	}
	now := time.Now()
	since := now.AddDate(0, 0, -days).Unix()

	total, err := s.memories.CountSince(ctx, unit, since)
	if err != nil {
		return nil, err
	}
	resp := &models.InsightsResponse{
		TotalMemories: total,
		PeriodStart:   since,
		PeriodEnd:     now.Unix(),
	}
	for _, q := range []struct {
		column string
		dst    *[]models.ValueCount
	}{
		{"topic", &resp.TopTopics},
		{"emotion", &resp.TopEmotions},
		{"owner", &resp.TopOwners},
	} {
		vals, err := s.memories.TopValues(ctx, q.column, unit, since, 5)
		if err != nil {
			return nil, err
		}
		if vals == nil {
			vals = []models.ValueCount{}
		}
		*q.dst = vals
	}
	return resp, nil
}

// CompareUnits asks the chat model to contrast what two units have been taught.
func (s *Service) CompareUnits(ctx context.Context, unitA, unitB string) (*models.CompareResponse, error) {
	if unitA == "" || unitB == "" {
		return nil, fmt.Errorf("%w: unitA and unitB are required", ErrInvalidRequest)
	}
	if s.generator == nil {
		return nil, ErrNoGenerator
	}

	var b strings.Builder
	b.WriteString("Compare the following two groups of lessons:\n")
	for _, unit := range []string{unitA, unitB} {
		mems, err := s.memories.ListByUnit(ctx, unit)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "\n=== %s ===\n", unit)
		for _, m := range mems {
			fmt.Fprintf(&b, "%s: %s\n", m.Topic, m.Content)
		}
	}
	b.WriteString("\nPoint out differences, similarities and suggestions for improvement.")

	out, err := s.generator.Generate(ctx, "You are an organizational analytics assistant.", b.String())
	if err != nil {
		return nil, &llm.GenerationError{Route: llm.RouteRemote, Model: s.generator.Model(), Err: err}
	}
	return &models.CompareResponse{Analysis: out}, nil
}

// RegisterUser creates a user. Returns store.ErrUserExists for known phones.
func (s *Service) RegisterUser(ctx context.Context, req *models.RegisterUserRequest) (*models.User, error) {
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: phone and name are required", ErrInvalidRequest)
	}
	u := &models.User{Phone: req.Phone, Name: req.Name, Unit: req.Unit, Role: req.Role}
	if err := s.users.Register(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser returns a user or ErrNotFound.
func (s *Service) GetUser(ctx context.Context, phone string) (*models.User, error) {
	u, err := s.users.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", phone, ErrNotFound)
	}
	return u, nil
}

// TeacherSummary reports what phone has taught across all units, broken
// down by topic and emotion, and how many messages they have had answered.
func (s *Service) TeacherSummary(ctx context.Context, phone string) (*models.TeacherSummary, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidRequest)
	}
	if _, err := s.GetUser(ctx, phone); err != nil {
		return nil, err
	}

	total, err := s.memories.CountByOwner(ctx, phone)
	if err != nil {
		return nil, err
	}
	sum := &models.TeacherSummary{Phone: phone, TotalMemories: total}
	for _, q := range []struct {
		column string
		dst    *[]models.ValueCount
	}{
		{"topic", &sum.Topics},
		{"emotion", &sum.Emotions},
	} {
		vals, err := s.memories.OwnerValueCounts(ctx, phone, q.column)
		if err != nil {
			return nil, err
		}
		if vals == nil {
			vals = []models.ValueCount{}
		}
		*q.dst = vals
	}

	sum.Interactions, sum.LastActive, err = s.usage.Stats(ctx, phone)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// DeleteUser removes a user along with their memories, links and
// interactions.
func (s *Service) DeleteUser(ctx context.Context, phone string) error {
	found, err := s.users.Delete(ctx, phone)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("user %s: %w", phone, ErrNotFound)
	}
	s.logger.Info("user deleted", "phone", phone)
	return nil
}
