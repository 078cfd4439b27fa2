// Package buffer clones an inbound request body so a fallback transport can
// replay it after the primary transport has consumed the original stream
// once (spec.md §3 invariants, §9 "Request cloning for fallback").
package buffer

import (
	"bytes"
	"io"

	"github.com/relaygate/relaygate/internal/gerrors"
)

// DefaultMemoryLimit bounds how much of a body CloneBody will buffer before
// giving up on cloning it — spec.md §9: "A bounded in-memory buffer (e.g.,
// ≤ 1 MiB) is adequate for DNS and typical forwarded bodies; larger bodies
// should disable fallback for correctness." There is no disk-spill path:
// a body that doesn't fit simply isn't cloned.
const DefaultMemoryLimit = 1 * 1024 * 1024

// CloneBody reads up to limit+1 bytes of src (0 uses DefaultMemoryLimit).
//
// If the body fits within limit, it returns two independent readers over the
// same bytes — primary for the attempt about to run, fallback preserved for
// a possible fallback re-issue (spec.md §3 "the controller preserves it by
// constructing an independent clone before any transport is attempted whose
// failures are recoverable") — and cloneable is true.
//
// If the body exceeds limit, cloneable is false and fallback is nil: per
// spec.md §9 the caller should not offer a fallback retry for a body this
// size. primary still replays the exact original stream — the bytes already
// read followed by whatever remains of src — so the primary attempt is
// unaffected by the failed clone.
func CloneBody(src io.Reader, limit int64) (primary, fallback io.ReadCloser, cloneable bool, err error) {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	if src == nil {
		return io.NopCloser(bytes.NewReader(nil)), io.NopCloser(bytes.NewReader(nil)), true, nil
	}

	data, readErr := io.ReadAll(io.LimitReader(src, limit+1))
	if readErr != nil {
		return nil, nil, false, gerrors.NewUpstreamError("clone-body", "", readErr)
	}

	if int64(len(data)) <= limit {
		return io.NopCloser(bytes.NewReader(data)), io.NopCloser(bytes.NewReader(data)), true, nil
	}

	// Too large to clone: replay what was already consumed ahead of
	// whatever src has left, so the primary attempt sees the untouched
	// original stream. No fallback clone is offered.
	primary = io.NopCloser(io.MultiReader(bytes.NewReader(data), src))
	return primary, nil, false, nil
}
