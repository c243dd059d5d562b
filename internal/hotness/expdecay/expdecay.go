// Package expdecay scores request keys with exponentially decaying counters.
// A key requested n times within a short window scores about n; every
// HalfLife without requests halves the score.
package expdecay

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/h3-columnar/internal/hotness"
)

const numShards = 64

type Tracker struct {
	HalfLife time.Duration

	now      func() time.Time
	shardCap int

	shards [numShards]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]counter
}

// counter holds the score as of last (unix nanos).
type counter struct {
	score float64
	last  int64
}

type Option func(*Tracker)

// WithMaxKeys bounds the number of tracked keys. A new key arriving at a
// full shard replaces the coldest key of that shard.
func WithMaxKeys(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.shardCap = max(1, n/numShards)
		}
	}
}

var _ hotness.Interface = (*Tracker)(nil)

func New(halfLife time.Duration, opts ...Option) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{HalfLife: halfLife, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	for i := range t.shards {
		t.shards[i].m = make(map[string]counter)
	}
	return t
}

func (t *Tracker) Inc(key string) float64 {
	if key == "" {
		return 0
	}
	s := t.pick(key)
	n := t.now().UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.m[key]
	if !ok {
		if t.shardCap > 0 && len(s.m) >= t.shardCap {
			t.evictColdest(s, n)
		}
		s.m[key] = counter{score: 1, last: n}
		return 1
	}
	c.score = t.decayed(c, n) + 1
	c.last = n
	s.m[key] = c
	return c.score
}

func (t *Tracker) Score(key string) float64 {
	if key == "" {
		return 0
	}
	s := t.pick(key)
	n := t.now().UnixNano()

	s.mu.RLock()
	c, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return t.decayed(c, n)
}

func (t *Tracker) Reset(keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		s := t.pick(key)
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
	}
}

// Size is the number of tracked keys.
func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].m)
		t.shards[i].mu.RUnlock()
	}
	return total
}

// Prune drops keys whose decayed score fell below min and returns how many
// were removed.
func (t *Tracker) Prune(min float64) int {
	n := t.now().UnixNano()
	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for k, c := range s.m {
			if t.decayed(c, n) < min {
				delete(s.m, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// evictColdest must be called with s.mu held.
func (t *Tracker) evictColdest(s *shard, now int64) {
	var (
		victim string
		lowest = math.Inf(1)
	)
	for k, c := range s.m {
		if sc := t.decayed(c, now); sc < lowest {
			victim, lowest = k, sc
		}
	}
	delete(s.m, victim)
}

func (t *Tracker) decayed(c counter, now int64) float64 {
	return decay(c.score, float64(now-c.last)/float64(time.Second), t.HalfLife.Seconds())
}

func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	// e^(-λt) with λ = ln2 / halfLife
	return score * math.Exp(-math.Ln2/halfLife*dt)
}

func (t *Tracker) pick(key string) *shard {
	h := xxhash.Sum64String(key)
	return &t.shards[h&(numShards-1)]
}
