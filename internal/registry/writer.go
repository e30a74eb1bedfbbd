package registry

import (
	"fmt"

	"github.com/specialistvlad/paramgrid/internal/failure"
)

// Writer is the single commit handle for a sealed registry.
type Writer struct {
	reg      *Registry
	released bool
}

// Commit validates every entry and then applies all of them. If any entry is
// rejected nothing is written.
func (w *Writer) Commit(entries []Entry) error {
	if w.released {
		return fmt.Errorf("commit on a released writer")
	}

	r := w.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(entries))
	apply := make([]bool, len(entries))
	for i, e := range entries {
		if _, dup := seen[e.Path]; dup {
			return failure.New(failure.CodeInvalidValue, "path %q appears twice in one commit", e.Path)
		}
		seen[e.Path] = struct{}{}

		ok, err := r.checkLocked(e)
		if err != nil {
			return err
		}
		apply[i] = ok
	}

	for i, e := range entries {
		if apply[i] {
			r.applyLocked(e)
		}
	}
	return nil
}

// Release unseals the registry. It is safe to call more than once.
func (w *Writer) Release() {
	if w.released {
		return
	}
	w.released = true
	w.reg.mu.Lock()
	w.reg.sealed = false
	w.reg.mu.Unlock()
}
