package output

import (
	"fmt"
	"strings"
)

// Verbosity controls how much of a result a sink emits.
type Verbosity int

const (
	Minimal Verbosity = iota // issue id and best matches only
	Full                     // every field
)

// ParseVerbosity maps "minimal" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "", "full":
		return Full, nil
	default:
		return Full, fmt.Errorf("unknown verbosity %q", s)
	}
}

func (v Verbosity) String() string {
	if v == Minimal {
		return "minimal"
	}
	return "full"
}
