package analyzers

import "sync"

type leakTracker struct {
	mu      sync.Mutex
	checked map[string]int
}

func newLeakTracker() *leakTracker {
	return &leakTracker{checked: map[string]int{}}
}

func (t *leakTracker) acquire(kind string) ReleaseFunc {
	t.mu.Lock()
	t.checked[kind]++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.checked[kind]--
			t.mu.Unlock()
		})
	}
}

func (t *leakTracker) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, c := range t.checked {
		n += c
	}
	return n
}
