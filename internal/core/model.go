package core

import (
	"time"
)

// Classification is the verdict assigned to a message.
type Classification string

const (
	// ClassificationPending marks a message that has not been processed yet.
	ClassificationPending Classification = "PENDING"
	// ClassificationBenign marks a legitimate message.
	ClassificationBenign Classification = "BENIGN"
	// ClassificationSmishing marks a fraudulent (SMS phishing) message.
	ClassificationSmishing Classification = "SMISHING"
	// ClassificationUnclassified marks a message whose processing exhausted
	// retries or could not consult the model. Terminal, not "not yet attempted".
	ClassificationUnclassified Classification = "UNCLASSIFIED"
)

// Terminal reports whether the classification is a final state.
func (c Classification) Terminal() bool {
	return c == ClassificationBenign || c == ClassificationSmishing || c == ClassificationUnclassified
}

// Message represents an inbound SMS message
type Message struct {
	ID             string
	Sender         string
	Body           string
	Timestamp      time.Time
	Classification Classification
	Explanation    string
	Processed      bool
}

// Label identifies which reference set an example belongs to
type Label string

const (
	LabelBenign   Label = "benign"
	LabelSmishing Label = "smishing"
)

// ReferenceExample is a labeled example with a precomputed embedding.
// Reference examples are loaded once at startup and never mutated.
type ReferenceExample struct {
	ID        string
	Text      string
	Label     Label
	Embedding []float32
}

// SimilarityMatch pairs a reference example with its similarity against a
// query vector. It only exists for the duration of a single search.
type SimilarityMatch struct {
	Example    ReferenceExample
	Similarity float64
}

// ProcessingState is a read-only snapshot of the queue published to observers
type ProcessingState struct {
	IsProcessing  bool
	CurrentID     string
	CurrentSender string
	QueueSize     int
	Error         string
}

// MemoryStats reports heap usage against the configured budget
type MemoryStats struct {
	Used        uint64
	Budget      uint64
	PercentUsed int
}
