package storage

import "time"

// ProviderSettings is the single active LLM configuration for a user.
// Secrets are stored as keyring envelopes, never in the clear.
type ProviderSettings struct {
	UserID         int64
	Provider       string
	ModelName      string
	APIEndpoint    string
	AuthType       string
	EncAPIKey      *string
	EncHeadersJSON *string
	MaxTokens      int
	Temperature    float64
	UpdatedAt      time.Time
}

type Conversation struct {
	ID        int64
	UserID    int64
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is immutable once persisted; transcript order is creation
// order.
type Message struct {
	ID             int64
	ConversationID int64
	Role           string
	Content        string
	CreatedAt      time.Time
}

type PluginSetting struct {
	UserID       int64
	PluginName   string
	Enabled      bool
	SettingsJSON string
}

type Checkin struct {
	ID         int64
	UserID     int64
	Mood       string
	Note       string
	RecordedAt time.Time
}

// MoodLabels enumerates the valid check-in moods with their display
// labels.
var MoodLabels = map[string]string{
	"great":      "😊 Great",
	"good":       "🙂 Good",
	"okay":       "😐 Okay",
	"tired":      "😴 Tired",
	"struggling": "😔 Struggling",
}

type Goal struct {
	ID         int64
	UserID     int64
	Title      string
	Streak     int
	LastDoneAt *time.Time
	Archived   bool
	CreatedAt  time.Time
}

const (
	LaneNow  = "now"
	LaneNext = "next"
	LaneDone = "done"
)

type KanbanCard struct {
	ID        int64
	UserID    int64
	Lane      string
	Title     string
	Position  int
	CreatedAt time.Time
}

type SearchHit struct {
	ConversationID    int64
	ConversationTitle string
	MessageID         int64
	Role              string
	Snippet           string
	CreatedAt         time.Time
}
