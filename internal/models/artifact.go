package models

// ArtifactKind is the tag of an ExtractedArtifact.
type ArtifactKind string

const (
	ArtifactCode ArtifactKind = "code"
	ArtifactLink ArtifactKind = "link"
	ArtifactNone ArtifactKind = "none"
)

// Confidence is a coarse quality ranking of an extraction.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// ExtractedArtifact is a verification code or link pulled out of a message body.
// PatternIndex is -1 when nothing matched.
type ExtractedArtifact struct {
	Kind         ArtifactKind `json:"kind"`
	Value        string       `json:"value,omitempty"`
	Confidence   Confidence   `json:"confidence"`
	PatternIndex int          `json:"pattern_index"`
	Context      string       `json:"context,omitempty"`
}

// NoArtifact is the empty extraction result.
func NoArtifact() ExtractedArtifact {
	return ExtractedArtifact{Kind: ArtifactNone, Confidence: ConfidenceNone, PatternIndex: -1}
}

// Found reports whether the artifact carries a value.
func (a ExtractedArtifact) Found() bool {
	return a.Kind == ArtifactCode || a.Kind == ArtifactLink
}
