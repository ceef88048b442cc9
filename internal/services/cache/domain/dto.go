package domain

// IDsInput replaces or merges an identifier list
type IDsInput struct {
	IDs []string `json:"ids" validate:"max=100000,dive,required,max=128"`
}

// LineItemsInput replaces, merges or diffs line items
type LineItemsInput struct {
	Items []LineItem `json:"items" validate:"max=10000,dive"`
}

// SnapshotInput replaces or merges a status snapshot
type SnapshotInput struct {
	Snapshot StatusSnapshot `json:"snapshot"`
}
