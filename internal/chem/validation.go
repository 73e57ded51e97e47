package chem

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotLoaded is reported when the registry is used before Load.
	ErrNotLoaded = errors.New("reaction registry has not been loaded")
	// ErrDuplicatePhotolysis is reported when two photolysis reactions share
	// the same non-UV reactant.
	ErrDuplicatePhotolysis = errors.New("duplicate photolysis reaction")
	// ErrInvalidGrid is reported for non-positive reactor dimensions or volumes.
	ErrInvalidGrid = errors.New("invalid reactor grid")
	// ErrInvalidReaction is reported for malformed reaction definitions.
	ErrInvalidReaction = errors.New("invalid reaction")
	// ErrInvalidInventory is reported for malformed initial inventory.
	ErrInvalidInventory = errors.New("invalid inventory")
	// ErrOutOfBounds is reported for inventory placed outside the reactor.
	ErrOutOfBounds = errors.New("location out of bounds")
)

// ConfigError is a fatal configuration problem detected before a run starts.
type ConfigError struct {
	Op     string
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Detail)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(op string, sentinel error, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Err: sentinel, Detail: fmt.Sprintf(format, args...)}
}

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid input: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "validation errors: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// InventoryEntry seeds Count molecules of Formula at Location.
type InventoryEntry struct {
	Formula  string
	Count    int64
	Location Location
}

// ValidateReactions checks every reaction definition and reports all issues
// at once, including duplicate photolysis definitions. It does not modify
// any registry.
func ValidateReactions(reactions []ReactionDescription) error {
	err := &ValidationError{}
	photolysis := make(map[string]int)

	for i, r := range reactions {
		prefix := fmt.Sprintf("reaction %d (%s)", i, r)
		kind, issue := classify(r)
		if issue != "" {
			err.Add(prefix + ": " + issue)
			continue
		}
		if r.rate < 0 {
			err.Add(prefix + ": rate cannot be negative")
		}
		if r.odds < 0 || r.odds > 1 {
			err.Add(fmt.Sprintf("%s: odds %g outside [0,1]", prefix, r.odds))
		}
		if kind == Photolysis {
			key := photolysisKey(r)
			if first, seen := photolysis[key]; seen {
				err.Add(fmt.Sprintf("%s: photolysis of %s already defined by reaction %d", prefix, key, first))
			} else {
				photolysis[key] = i
			}
		}
	}

	if err.HasIssues() {
		return err
	}
	return nil
}

// ValidateInventory checks that every entry names a formula and sits inside a
// reactor of the given edge length.
func ValidateInventory(entries []InventoryEntry, size int) error {
	err := &ValidationError{}
	for i, e := range entries {
		if strings.TrimSpace(e.Formula) == "" {
			err.Add(fmt.Sprintf("inventory entry %d: formula is required", i))
		}
		if e.Count < 0 {
			err.Add(fmt.Sprintf("inventory entry %d (%s): count cannot be negative", i, e.Formula))
		}
		if !e.Location.Within(size) {
			err.Add(fmt.Sprintf("inventory entry %d (%s): location %s outside reactor of size %d", i, e.Formula, e.Location, size))
		}
	}
	if err.HasIssues() {
		return err
	}
	return nil
}
