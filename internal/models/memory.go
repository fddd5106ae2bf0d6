package models

// Memory is a unit of taught knowledge stored in SQLite.
type Memory struct {
	ID             string   `json:"id"`
	Owner          string   `json:"owner"`
	Unit           string   `json:"unit"`
	Topic          string   `json:"topic"`
	Content        string   `json:"content"`
	Priority       *int     `json:"priority,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Emotion        string   `json:"emotion,omitempty"`
	Embedding      []byte   `json:"-"`
	EmbeddingModel string   `json:"embeddingModel,omitempty"`
	CreatedAt      int64    `json:"createdAt"`
}

// HasEmbedding reports whether the memory carries a stored vector.
func (m *Memory) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// MemoryLink is a directed, weighted edge between two memories.
type MemoryLink struct {
	ID        int64  `json:"id"`
	SourceID  string `json:"sourceId"`
	TargetID  string `json:"targetId"`
	Kind      string `json:"kind"`
	Weight    int    `json:"weight"`
	CreatedAt int64  `json:"createdAt"`
}

// Link kinds.
const (
	LinkKindReinforces = "reinforces"
	LinkKindSemantic   = "semantic"
)

// TopicInteraction tags memories recorded from conversations.
const TopicInteraction = "interaction"

// User owns memories. Deleting a user cascades to their memories and links.
type User struct {
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt"`
}

// Interaction is one answered message: what the owner sent, what the chat
// model replied and which model replied.
type Interaction struct {
	ID        int64  `json:"id"`
	Owner     string `json:"owner"`
	Unit      string `json:"unit"`
	Input     string `json:"input"`
	Reply     string `json:"reply"`
	Model     string `json:"model"`
	CreatedAt int64  `json:"createdAt"`
}

// EmbeddingCacheEntry stores a cached embedding keyed by content hash and model.
type EmbeddingCacheEntry struct {
	ContentHash string `json:"contentHash"`
	Model       string `json:"model"`
	Embedding   []byte `json:"embedding"`
	Dimension   int    `json:"dimension"`
	UpdatedAt   int64  `json:"updatedAt"`
}
