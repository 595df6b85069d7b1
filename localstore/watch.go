// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

// Watcher delivers a coalesced signal after every committed write that
// touched one of its tables. The channel has capacity one; signals
// arriving while the observer is busy collapse into a single pending
// notification, so a slow observer never blocks writers.
type Watcher struct {
	store  *Store
	tables map[string]struct{}
	c      chan struct{}
}

// C returns the signal channel. It is closed when the watcher is
// cancelled or the store is closed.
func (w *Watcher) C() <-chan struct{} { return w.c }

// Cancel unregisters the watcher and closes its channel.
func (w *Watcher) Cancel() {
	w.store.watchMu.Lock()
	defer w.store.watchMu.Unlock()
	if _, ok := w.store.watchers[w]; !ok {
		return
	}
	delete(w.store.watchers, w)
	close(w.c)
}

// Watch registers a watcher for the given tables. With no tables the
// watcher fires on every committed write.
func (s *Store) Watch(tables ...string) *Watcher {
	w := &Watcher{
		store:  s,
		tables: make(map[string]struct{}, len(tables)),
		c:      make(chan struct{}, 1),
	}
	for _, t := range tables {
		w.tables[t] = struct{}{}
	}
	s.watchMu.Lock()
	s.watchers[w] = struct{}{}
	s.watchMu.Unlock()
	return w
}

func (s *Store) notify(tables []string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for w := range s.watchers {
		if !w.matches(tables) {
			continue
		}
		select {
		case w.c <- struct{}{}:
		default: // signal already pending
		}
	}
}

func (w *Watcher) matches(tables []string) bool {
	if len(w.tables) == 0 {
		return true
	}
	for _, t := range tables {
		if _, ok := w.tables[t]; ok {
			return true
		}
	}
	return false
}
