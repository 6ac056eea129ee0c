// Package quorum implements the router that dispatches one logical call
// across an ordered list of endpoints, decides the required agreement for
// the method, and resolves the collected results into a single answer or a
// quorum failure.
package quorum

import (
	"fmt"
	"strings"
)

// ProviderFailure records one endpoint's failure within a single dispatch,
// so a ProviderError can attribute which provider said what.
type ProviderFailure struct {
	URL string
	Err error
}

// ProviderError is raised when a required slot could not be filled because
// it, and every fallback offered to it, failed.
type ProviderError struct {
	Failed    []ProviderFailure
	Succeeded []string
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "quorum: not enough providers succeeded (%d failed, %d succeeded)", len(e.Failed), len(e.Succeeded))
	for _, f := range e.Failed {
		fmt.Fprintf(&b, "; %s: %v", f.URL, f.Err)
	}
	return b.String()
}

// Disagreement records one endpoint's result within a tie-break, for
// attribution in a QuorumError or a disagreement warning.
type Disagreement struct {
	URL   string
	Value string
}

// QuorumError is raised when every required slot succeeded (possibly aided
// by fallbacks) but no value was returned by enough distinct endpoints to
// satisfy the method's required quorum.
type QuorumError struct {
	Required      int
	BestCount     int
	Disagreements []Disagreement
	Failed        []ProviderFailure
}

func (e *QuorumError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "quorum: not met (required %d, best agreement %d)", e.Required, e.BestCount)
	for _, d := range e.Disagreements {
		fmt.Fprintf(&b, "; %s => %s", d.URL, d.Value)
	}
	for _, f := range e.Failed {
		fmt.Fprintf(&b, "; %s: %v", f.URL, f.Err)
	}
	return b.String()
}
