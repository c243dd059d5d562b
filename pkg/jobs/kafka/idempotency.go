package kafka

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// jobDedupe remembers recently completed job ids so redelivered messages
// are not recomputed.
type jobDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, struct{}]
}

func newJobDedupe(size int) *jobDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, struct{}](size)
	return &jobDedupe{lru: c}
}

// claim returns false if id was already claimed.
func (d *jobDedupe) claim(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lru.Contains(id) {
		return false
	}
	d.lru.Add(id, struct{}{})
	return true
}

// release forgets id so a later redelivery runs again.
func (d *jobDedupe) release(id string) {
	d.mu.Lock()
	d.lru.Remove(id)
	d.mu.Unlock()
}
