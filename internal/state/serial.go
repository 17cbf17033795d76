package state

import (
	"github.com/puzpuzpuz/xsync/v3"
)

type keyWorker struct {
	pending []func()
	running bool
}

// SerialQueue runs submitted tasks one at a time per key, in submission
// order. A key has a draining goroutine only while it has pending work.
type SerialQueue[K comparable] struct {
	workers *xsync.MapOf[K, *keyWorker]
}

func NewSerialQueue[K comparable]() *SerialQueue[K] {
	return &SerialQueue[K]{workers: xsync.NewMapOf[K, *keyWorker]()}
}

func (q *SerialQueue[K]) Submit(key K, task func()) {
	start := false
	q.workers.Compute(key, func(w *keyWorker, loaded bool) (*keyWorker, bool) {
		if !loaded {
			w = &keyWorker{}
		}
		w.pending = append(w.pending, task)
		if !w.running {
			w.running = true
			start = true
		}
		return w, false
	})
	if start {
		go q.drain(key)
	}
}

func (q *SerialQueue[K]) drain(key K) {
	for {
		var task func()
		q.workers.Compute(key, func(w *keyWorker, loaded bool) (*keyWorker, bool) {
			if !loaded || len(w.pending) == 0 {
				return nil, true
			}
			task = w.pending[0]
			w.pending[0] = nil
			w.pending = w.pending[1:]
			return w, false
		})
		if task == nil {
			return
		}
		task()
	}
}

// Pending returns the number of keys with queued or running work.
func (q *SerialQueue[K]) Pending() int {
	return q.workers.Size()
}
