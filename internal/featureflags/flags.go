package featureflags

import (
	"os"
	"strings"
)

// StrictStatusTransitions restricts UpdateStatus to pending -> active <-> inactive -> terminated
const StrictStatusTransitions = "strict_status_transitions"

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	return parseBool(os.Getenv("FLAG_" + strings.ToUpper(name)))
}

// Flags is a snapshot of the flags the services consult
type Flags struct {
	StrictStatusTransitions bool
}

// Load reads every known flag from the environment once at startup
func Load() Flags {
	return Flags{
		StrictStatusTransitions: Enabled(StrictStatusTransitions),
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
