package packstore

// Manifest is the JSON document recorded alongside a pack describing its
// commit-protocol state.
type Manifest struct {
	Status      string `json:"status"` // "staging" | "complete"
	PackID      string `json:"pack_id"`
	PackHash    string `json:"pack_hash"`
	IdxHash     string `json:"idx_hash"`
	PackSize    int64  `json:"pack_size"`
	IdxSize     int64  `json:"idx_size"`
	ObjectCount int    `json:"object_count"`
	CompletedAt int64  `json:"completed_at"`
}

const (
	StatusStaging  = "staging"
	StatusComplete = "complete"
)
