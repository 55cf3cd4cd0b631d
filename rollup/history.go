// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rollup

import (
	"context"
	"sync"

	"github.com/ava-labs/avalanchego/utils/buffer"
)

// DefaultHistorySize is the number of commits kept by a node.
const DefaultHistorySize = 256

var _ Subscription = (*History)(nil)

// History keeps the most recent commits, dropping the oldest when full.
type History struct {
	l       sync.RWMutex
	size    int
	commits buffer.Deque[*Commit]
}

func NewHistory(size int) (*History, error) {
	if size < 1 {
		return nil, ErrInvalidHistorySize
	}
	return &History{
		size:    size,
		commits: buffer.NewUnboundedDeque[*Commit](size + 1), // +1 so we never resize
	}, nil
}

func (h *History) Accept(_ context.Context, c *Commit) error {
	h.l.Lock()
	defer h.l.Unlock()

	if h.commits.Len() == h.size {
		_, _ = h.commits.PopLeft()
	}
	h.commits.PushRight(c)
	return nil
}

func (*History) Close() error {
	return nil
}

func (h *History) Last() (*Commit, bool) {
	h.l.RLock()
	defer h.l.RUnlock()

	return h.commits.PeekRight()
}

// Commits returns up to [limit] commits, newest first. A non-positive
// [limit] returns all of them.
func (h *History) Commits(limit int) []*Commit {
	h.l.RLock()
	defer h.l.RUnlock()

	n := h.commits.Len()
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*Commit, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		c, _ := h.commits.Index(i)
		out = append(out, c)
	}
	return out
}
