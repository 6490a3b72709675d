// pkg/runtime/interpreter.go
package runtime

import (
	"strings"
	"sync"
	"sync/atomic"
)

// LockMode selects the execution-lock discipline of the managed runtime.
type LockMode int

const (
	// Exclusive means only one managed call executes at any instant
	// process-wide. This mirrors an interpreter with a global lock.
	Exclusive LockMode = iota
	// Parallel means managed calls may run truly in parallel; Acquire and
	// Release become no-ops. Callers must not change their call ordering
	// based on the active mode.
	Parallel
)

// ParseLockMode maps manifest strings onto a LockMode. Unknown values fall
// back to Exclusive, the safe discipline.
func ParseLockMode(s string) LockMode {
	if strings.EqualFold(strings.TrimSpace(s), "parallel") {
		return Parallel
	}
	return Exclusive
}

// Interpreter models the managed runtime's exclusive execution lock. The
// engine holds it only around synchronous managed calls, never across a
// suspension point.
type Interpreter struct {
	mode LockMode
	mu   sync.Mutex

	// holders counts goroutines currently inside Acquire/Release. It exists
	// so tests and invariant checks can observe lock state in both modes.
	holders atomic.Int64
}

func NewInterpreter(mode LockMode) *Interpreter {
	return &Interpreter{mode: mode}
}

func (ip *Interpreter) Mode() LockMode { return ip.mode }

// Acquire takes the exclusive lock. In Parallel mode it only bumps the
// holder count.
func (ip *Interpreter) Acquire() {
	if ip.mode == Exclusive {
		ip.mu.Lock()
	}
	ip.holders.Add(1)
}

// Release returns the exclusive lock.
func (ip *Interpreter) Release() {
	ip.holders.Add(-1)
	if ip.mode == Exclusive {
		ip.mu.Unlock()
	}
}

// Held reports whether any goroutine is currently between Acquire and
// Release.
func (ip *Interpreter) Held() bool { return ip.holders.Load() > 0 }

// Do runs fn under the lock.
func (ip *Interpreter) Do(fn func()) {
	ip.Acquire()
	defer ip.Release()
	fn()
}
