package models

// TeachRequest is the body for POST /teach.
type TeachRequest struct {
	Owner    string   `json:"phone"`
	Unit     string   `json:"unit"`
	Topic    string   `json:"topic"`
	Content  string   `json:"content"`
	Priority *int     `json:"priority,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Emotion  string   `json:"emotion,omitempty"`
}

// TeachResponse is returned after a memory has been stored.
// EmbeddingSkipped is set when no tier could produce a vector and the
// memory was stored without one.
type TeachResponse struct {
	Memory           *Memory      `json:"memory"`
	Links            []MemoryLink `json:"links"`
	EmbeddingSkipped bool         `json:"embeddingSkipped"`
}

// SearchRequest is the body for POST /memories/search.
type SearchRequest struct {
	Owner string `json:"phone"`
	Unit  string `json:"unit"`
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
}

// ScoredMemory pairs a memory with its similarity to a query.
type ScoredMemory struct {
	Memory *Memory `json:"memory"`
	Score  float64 `json:"score"`
}

// SearchResponse is returned from POST /memories/search.
type SearchResponse struct {
	Results []ScoredMemory `json:"results"`
	Message string         `json:"message,omitempty"`
}

// LinkRequest is the body for POST /memories/{id}/links.
type LinkRequest struct {
	TargetID string `json:"targetId"`
	Kind     string `json:"kind,omitempty"`
	Weight   *int   `json:"weight,omitempty"`
}

// LinkedMemory is an outgoing link together with the memory it points to.
type LinkedMemory struct {
	Link   MemoryLink `json:"link"`
	Memory *Memory    `json:"memory"`
}

// RespondRequest is the body for POST /webhook.
type RespondRequest struct {
	Owner   string `json:"phone"`
	Unit    string `json:"unit"`
	Message string `json:"message"`
}

// RespondResponse carries the reply and whether it came from the
// generator or from the memory fallback.
type RespondResponse struct {
	Status   string `json:"status"`
	Original string `json:"original"`
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"`
}

// RecapRequest is the body for POST /recap.
type RecapRequest struct {
	Owner string `json:"phone"`
	Unit  string `json:"unit"`
}

// TopicCount is a topic and the number of memories filed under it.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// RecapResponse summarizes what an owner has taught within a unit.
type RecapResponse struct {
	Summary string       `json:"summary"`
	Topics  []TopicCount `json:"topics"`
}

// ValueCount is a generic label/frequency pair used by insights.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// InsightsResponse aggregates recent activity.
type InsightsResponse struct {
	TotalMemories int          `json:"totalMemories"`
	TopTopics     []ValueCount `json:"topTopics"`
	TopEmotions   []ValueCount `json:"topEmotions"`
	TopOwners     []ValueCount `json:"topOwners"`
	PeriodStart   int64        `json:"periodStart"`
	PeriodEnd     int64        `json:"periodEnd"`
}

// CompareRequest is the body for POST /compare.
type CompareRequest struct {
	UnitA string `json:"unitA"`
	UnitB string `json:"unitB"`
}

// CompareResponse carries the generated comparison of two units.
type CompareResponse struct {
	Analysis string `json:"analysis"`
}

// RouteRequest is the body for POST /route.
type RouteRequest struct {
	Text string `json:"text"`
}

// RouteResponse reports which model handled a prompt.
type RouteResponse struct {
	Route string `json:"route"`
	Reply string `json:"reply"`
}

// RegisterUserRequest is the body for POST /users/register.
type RegisterUserRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Unit  string `json:"unit"`
	Role  string `json:"role,omitempty"`
}

// TeacherSummary is returned from GET /users/{phone}/summary. It describes
// everything one user has taught and asked.
type TeacherSummary struct {
	Phone         string       `json:"phone"`
	TotalMemories int          `json:"totalMemories"`
	Topics        []ValueCount `json:"topics"`
	Emotions      []ValueCount `json:"emotions"`
	Interactions  int          `json:"interactions"`
	LastActive    int64        `json:"lastActive,omitempty"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status      string       `json:"status"`
	Ollama      ServiceCheck `json:"ollama"`
	DB          ServiceCheck `json:"db"`
	MemoryCount int          `json:"memoryCount"`
}

type ServiceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
