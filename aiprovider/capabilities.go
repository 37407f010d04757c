package aiprovider

import (
	"sort"
	"strings"
)

// Capability identifies one operation a provider can perform.
type Capability string

const (
	// CapabilityVisionAnalysis covers AnalyzeImage.
	CapabilityVisionAnalysis Capability = "vision-analysis"

	// CapabilityTextGeneration covers GenerateText.
	CapabilityTextGeneration Capability = "text-generation"

	// CapabilityMaterialSuggestion covers AnalyzeMaterials.
	CapabilityMaterialSuggestion Capability = "material-suggestion"

	// CapabilityModelGeneration covers Generate3DModel.
	CapabilityModelGeneration Capability = "model-generation"
)

// CapabilitySet is an immutable set of capabilities.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the capability.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities in sorted order for stable logging.
func (s CapabilitySet) List() []Capability {
	caps := make([]Capability, 0, len(s))
	for c := range s {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// String renders the set as a comma-separated list.
func (s CapabilitySet) String() string {
	caps := s.List()
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
