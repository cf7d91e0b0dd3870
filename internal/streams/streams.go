package streams

import (
	"log/slog"
	"strings"
)

// Separator delimits the segments of a stream path.
const Separator = ":"

// The accumulating namespaces map named series; a leaf write under them
// appends to the series instead of replacing it.
const (
	LossesDict = "losses_dict"
	LogsDict   = "logs_dict"
	Signals    = "signals"
)

// Handler is the hierarchical key-value store holding the live state of a
// run. It is owned by the engine; modules only ever see the values resolved
// for their declared input streams plus their own output namespace.
//
// Handler is not safe for concurrent use. The engine serves pipelines on a
// single logical thread of control, so no locking discipline is needed.
type Handler struct {
	store map[string]any
}

// New returns a Handler with the losses_dict, logs_dict and signals
// namespaces pre-registered.
func New() *Handler {
	h := &Handler{store: make(map[string]any)}
	h.Register(LossesDict)
	h.Register(LogsDict)
	h.Register(Signals)
	return h
}

// Register ensures a top-level namespace exists without overwriting it.
func (h *Handler) Register(topPath string) {
	validateSegment(topPath)
	if _, ok := h.store[topPath]; !ok {
		h.store[topPath] = make(map[string]any)
	}
}

// Update sets the leaf addressed by path to value, creating intermediate
// levels as needed. Writes are pure overwrites except for leaves under the
// losses_dict and logs_dict namespaces, which append to a growable series
// per key. A single-segment path replaces the whole namespace, which is how
// a checkpoint restore re-seeds "signals".
func (h *Handler) Update(path string, value any) {
	segments := split(path)

	if len(segments) == 1 {
		h.store[segments[0]] = value
		return
	}

	node := h.store
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}

	leaf := segments[len(segments)-1]
	if accumulating(segments[0]) {
		series, _ := node[leaf].([]any)
		node[leaf] = append(series, value)
		return
	}
	node[leaf] = value
}

// Get returns the value addressed by path, or nil if any level along the
// path was never written. It panics only on a malformed path.
func (h *Handler) Get(path string) any {
	segments := split(path)

	var current any = h.store
	for _, seg := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = node[seg]
		if !ok {
			return nil
		}
	}
	return current
}

// Has reports whether the path resolves to a written value.
func (h *Handler) Has(path string) bool {
	return h.Get(path) != nil
}

// Reset clears every entry under a top-level namespace. The engine calls it
// between iterations for losses_dict and logs_dict. Resetting signals is
// refused: that namespace must survive the whole run.
func (h *Handler) Reset(topPath string) {
	validateSegment(topPath)
	if topPath == Signals {
		slog.Warn("Refusing to reset the signals namespace.", "path", topPath)
		return
	}
	h.store[topPath] = make(map[string]any)
}

func accumulating(top string) bool {
	return top == LossesDict || top == LogsDict
}

func split(path string) []string {
	segments := strings.Split(path, Separator)
	for _, seg := range segments {
		validateSegment(seg)
	}
	return segments
}

func validateSegment(seg string) {
	if seg == "" {
		panic("streams: malformed path: empty segment")
	}
}
