package secrets

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents a validation failure for required secrets.
type ValidationError struct {
	Missing []string
	Empty   []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Empty) > 0 {
		parts = append(parts, fmt.Sprintf("empty values for required environment variables: %s", strings.Join(e.Empty, ", ")))
	}
	return strings.Join(parts, "; ")
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ValidateRequired checks that every key is set to a non-blank value.
func ValidateRequired(lookup LookupFunc, keys ...string) error {
	var missing, empty []string
	for _, key := range keys {
		v, ok := lookup(key)
		switch {
		case !ok:
			missing = append(missing, key)
		case strings.TrimSpace(v) == "":
			empty = append(empty, key)
		}
	}
	if len(missing) == 0 && len(empty) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(empty)
	return &ValidationError{Missing: missing, Empty: empty}
}

// ProductionKeys are required when ENV is production: analytics must be
// persisted and failures reported.
var ProductionKeys = []string{"DATABASE_URL", "SENTRY_DSN"}
