// Package graphcycle detects cycles in directed graphs given as a successor
// function. Ancestor chains use it with a single successor per node.
package graphcycle

import "fmt"

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// CycleError reports the node at which a cycle closed.
type CycleError[K comparable] struct {
	Key K
}

func (e CycleError[K]) Error() string {
	return fmt.Sprintf("cycle detected at %v", e.Key)
}

// Config configures a traversal.
type Config[K comparable] struct {
	Starts []K
	Next   func(K) []K
	// Limit bounds the number of visited nodes; zero means unbounded.
	Limit int
}

// Detect walks edges from Starts and returns the first CycleError found.
func Detect[K comparable](cfg Config[K]) error {
	if cfg.Next == nil {
		return fmt.Errorf("cycle detect: next function is nil")
	}
	states := make(map[K]visitState, len(cfg.Starts))

	var visit func(key K) error
	visit = func(key K) error {
		switch states[key] {
		case stateVisiting:
			return CycleError[K]{Key: key}
		case stateDone:
			return nil
		}
		if cfg.Limit > 0 && len(states) >= cfg.Limit {
			return fmt.Errorf("cycle detect: more than %d nodes", cfg.Limit)
		}
		states[key] = stateVisiting
		for _, next := range cfg.Next(key) {
			if err := visit(next); err != nil {
				return err
			}
		}
		states[key] = stateDone
		return nil
	}

	for _, start := range cfg.Starts {
		if err := visit(start); err != nil {
			return err
		}
	}
	return nil
}
