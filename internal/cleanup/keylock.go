/*
Copyright (c) 2025 The shopvac Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package cleanup

import (
	"context"
	"sync"
)

// keyLock is a set of FIFO mutexes indexed by key.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*fifoLock
}

type fifoLock struct {
	held    bool
	waiters []chan struct{}
	// refs counts holders plus waiters; the entry is dropped at zero
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*fifoLock)}
}

// Lock acquires the lock for key, waiting behind earlier callers. It
// returns ctx.Err() if ctx is done before the lock is handed over.
func (k *keyLock) Lock(ctx context.Context, key string) error {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &fifoLock{}
		k.locks[key] = l
	}
	l.refs++
	if !l.held {
		l.held = true
		k.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	k.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	select {
	case <-ch:
		// handed over while giving up; pass it on
		k.unlockLocked(key, l)
		return ctx.Err()
	default:
	}
	for i, w := range l.waiters {
		if w == ch {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			break
		}
	}
	k.release(key, l)
	return ctx.Err()
}

// Unlock hands the lock for key to the next waiter, if any.
func (k *keyLock) Unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok || !l.held {
		panic("cleanup: unlock of unlocked key " + key)
	}
	k.unlockLocked(key, l)
}

// Held reports whether a pass currently holds key.
func (k *keyLock) Held(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	return ok && l.held
}

func (k *keyLock) unlockLocked(key string, l *fifoLock) {
	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(next)
	} else {
		l.held = false
	}
	k.release(key, l)
}

func (k *keyLock) release(key string, l *fifoLock) {
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
