// Package scope models the stack of nested execution scopes created by
// provider nodes. Stacks are immutable values: every activation carries its
// own copy, and pushes produce new stacks used by subsequent pulses.
package scope

import (
	"fmt"

	"github.com/google/uuid"
)

// Root is the outermost scope, always present.
const Root = "Global"

// Stack is an ordered list of scope identifiers, outermost first.
type Stack []string

// NewStack returns a stack containing only the root scope.
func NewStack() Stack {
	return Stack{Root}
}

// Push returns a new stack with id appended. The receiver is not modified.
func (s Stack) Push(id string) Stack {
	next := make(Stack, len(s), len(s)+1)
	copy(next, s)
	return append(next, id)
}

// Pop returns a new stack without the innermost occurrence of id. Popping the
// root or an absent id returns the stack unchanged.
func (s Stack) Pop(id string) Stack {
	if id == Root {
		return s
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == id {
			next := make(Stack, 0, len(s)-1)
			next = append(next, s[:i]...)
			next = append(next, s[i+1:]...)
			return next
		}
	}
	return s
}

// Current returns the innermost scope id.
func (s Stack) Current() string {
	if len(s) == 0 {
		return Root
	}
	return s[len(s)-1]
}

// Contains reports whether id is anywhere on the stack.
func (s Stack) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Clone returns an independent copy. Activations clone before handing the
// stack to handler code so no goroutine shares backing arrays.
func (s Stack) Clone() Stack {
	if s == nil {
		return nil
	}
	next := make(Stack, len(s))
	copy(next, s)
	return next
}

// Hash folds the stack into a comparable key for provider lookup caches.
func (s Stack) Hash() string {
	h := ""
	for _, id := range s {
		h += id + "\x1f"
	}
	return h
}

// NewID mints a scope identifier for a provider or loop instance. The prefix
// keeps bridge dumps readable ("PR_" providers, "LO_" loop iterations).
func NewID(prefix, nodeID string) string {
	short := nodeID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s_%s", prefix, short, uuid.NewString()[:6])
}
