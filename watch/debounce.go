package watch

import (
	"sort"
	"sync"
	"time"
)

// burst is the set of paths changed under one root during a quiet period.
type burst struct {
	root  string
	paths []string
}

// debouncer coalesces changes per root. Each root has its own AfterFunc
// timer, reset on every change; when it fires the accumulated paths are
// delivered on out as one burst.
type debouncer struct {
	window time.Duration
	out    chan<- burst
	done   <-chan struct{}

	mu      sync.Mutex
	timers  map[string]*time.Timer
	gen     map[string]uint64
	pending map[string]map[string]struct{}
}

func newDebouncer(window time.Duration, out chan<- burst, done <-chan struct{}) *debouncer {
	return &debouncer{
		window:  window,
		out:     out,
		done:    done,
		timers:  make(map[string]*time.Timer),
		gen:     make(map[string]uint64),
		pending: make(map[string]map[string]struct{}),
	}
}

// add records a change of path under root and restarts root's quiet period.
func (d *debouncer) add(root, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending[root] == nil {
		d.pending[root] = make(map[string]struct{})
	}
	d.pending[root][path] = struct{}{}

	if t := d.timers[root]; t != nil {
		t.Stop()
	}
	d.gen[root]++
	gen := d.gen[root]
	d.timers[root] = time.AfterFunc(d.window, func() { d.flush(root, gen) })
}

// flush delivers root's burst unless a later add restarted the period.
func (d *debouncer) flush(root string, gen uint64) {
	d.mu.Lock()
	if d.gen[root] != gen {
		d.mu.Unlock()
		return
	}
	set := d.pending[root]
	delete(d.pending, root)
	delete(d.timers, root)
	d.mu.Unlock()

	if len(set) == 0 {
		return
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	select {
	case d.out <- burst{root: root, paths: paths}:
	case <-d.done:
	}
}

// stop cancels every pending timer.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for root, t := range d.timers {
		t.Stop()
		delete(d.timers, root)
	}
}
