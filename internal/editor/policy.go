package editor

import "fmt"

type Feature string

const (
	FeatureUnlimitedSubtitles Feature = "unlimited-subtitles"
	FeatureSplitSubtitle      Feature = "split-subtitle"
	FeatureMergeSubtitle      Feature = "merge-subtitle"
	FeatureSplitAll           Feature = "split-all"
	FeatureAutoSync           Feature = "auto-sync"
)

const DefaultFreeCueLimit = 10

// CapabilityError is returned when a gated operation is attempted without
// entitlement.
type CapabilityError struct {
	Feature Feature
	Message string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s: %s", e.Feature, e.Message)
}

// Policy is the single entitlement check callers run before invoking a
// gated transform.
type Policy struct {
	Pro          bool
	FreeCueLimit int
}

func (p Policy) limit() int {
	if p.FreeCueLimit <= 0 {
		return DefaultFreeCueLimit
	}
	return p.FreeCueLimit
}

// Check reports whether feature may run against a sequence of cueCount cues.
func (p Policy) Check(feature Feature, cueCount int) error {
	if p.Pro {
		return nil
	}

	switch feature {
	case FeatureUnlimitedSubtitles:
		if cueCount >= p.limit() {
			return &CapabilityError{
				Feature: feature,
				Message: fmt.Sprintf("free plan is limited to %d subtitles", p.limit()),
			}
		}
		return nil
	case FeatureSplitSubtitle, FeatureMergeSubtitle, FeatureSplitAll, FeatureAutoSync:
		return &CapabilityError{Feature: feature, Message: "requires pro"}
	default:
		return nil
	}
}

func (p Policy) Allowed(feature Feature) bool {
	return p.Check(feature, 0) == nil
}
