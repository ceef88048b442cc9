package domain

// IDsInput carries identifiers for seed, remove and prefetch calls
type IDsInput struct {
	IDs []string `json:"ids" validate:"max=10000,dive,required,max=128"`
}

// ResultsInput seeds lookup results keyed by identifier
type ResultsInput struct {
	Results map[string]LookupResult `json:"results" validate:"max=10000"`
}

// ReadInput is one raw read pushed by a reader bridge
type ReadInput struct {
	Identifier string `json:"identifier" validate:"required,tagid"`
	Signal     string `json:"signal"`
}

// ReadsInput is a batch of bridge reads
type ReadsInput struct {
	Reads []ReadInput `json:"reads" validate:"required,min=1,max=1000,dive"`
}

// ReadsOutput reports how many reads reached the engine
type ReadsOutput struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// RemovedOutput reports how many identifiers a call touched
type RemovedOutput struct {
	Count int `json:"count"`
}
