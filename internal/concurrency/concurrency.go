package concurrency

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RunLoop invokes fn when signaled, serializing invocations: signals that
// arrive while fn runs coalesce into at most one trailing invocation. One
// invocation always happens at startup. When fn returns false and maxRetry
// is positive it is retried with jittered exponential backoff capped at
// maxRetry; with maxRetry <= 0 a false return just waits for the next
// signal. A positive resync adds a jittered periodic signal. Returns when
// ctx is done.
func RunLoop(ctx context.Context, signal <-chan struct{}, resync, maxRetry time.Duration, fn func(context.Context) bool) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{} // initial sync

	if signal != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-signal:
					if !ok {
						return
					}
				}
				select {
				case ch <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if resync > 0 {
		go func() {
			ticker := time.NewTicker(Jitter(resync))
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
				select {
				case ch <- struct{}{}:
				default:
				}
				ticker.Reset(Jitter(resync))
			}
		}()
	}

	attempt := func() {
		var lastRetry time.Duration
		for {
			if fn(ctx) || maxRetry <= 0 || ctx.Err() != nil {
				return
			}

			if lastRetry == 0 {
				lastRetry = time.Millisecond * 50
			}
			lastRetry += lastRetry / 8
			if lastRetry > maxRetry {
				lastRetry = maxRetry
			}

			if !sleep(ctx, Jitter(lastRetry)) {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
		}
		attempt()
		sleep(ctx, Jitter(time.Millisecond*100)) // cooldown
	}
}

// Jitter spreads a duration by ±5% to keep loops from synchronizing.
func Jitter(duration time.Duration) time.Duration {
	maxJitter := int64(duration) * 5 / 100
	if maxJitter <= 0 {
		return duration
	}
	return duration + time.Duration(rand.Int63n(maxJitter*2)-maxJitter)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// StateContainer holds one value and wakes watchers when it is replaced.
// Watch channels have capacity one: a burst of swaps collapses into a
// single pending tick, so watchers re-read the latest value instead of
// replaying history.
type StateContainer[T any] struct {
	lock     sync.Mutex
	current  T
	watchers map[chan struct{}]struct{}
}

func (s *StateContainer[T]) Get() T {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.current
}

func (s *StateContainer[T]) Swap(val T) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current = val
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch returns a channel that ticks after each Swap until ctx is done.
func (s *StateContainer[T]) Watch(ctx context.Context) <-chan struct{} {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.watchers == nil {
		s.watchers = map[chan struct{}]struct{}{}
	}

	ch := make(chan struct{}, 1)
	s.watchers[ch] = struct{}{}

	go func() {
		<-ctx.Done()

		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.watchers, ch)
		close(ch)
	}()

	return ch
}

// Feed fans values out to subscribers. Unlike StateContainer it delivers
// every published value, not just a change tick. A subscriber that falls
// more than subscriberBuffer values behind loses the oldest ones.
type Feed[T any] struct {
	lock sync.Mutex
	subs map[chan T]struct{}
}

const subscriberBuffer = 64

func (f *Feed[T]) Publish(val T) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for ch := range f.subs {
		select {
		case ch <- val:
		default:
			// drop the oldest value to make room for the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- val:
			default:
			}
		}
	}
}

// Subscribe returns a channel of published values until ctx is done.
func (f *Feed[T]) Subscribe(ctx context.Context) <-chan T {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.subs == nil {
		f.subs = map[chan T]struct{}{}
	}

	ch := make(chan T, subscriberBuffer)
	f.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()

		f.lock.Lock()
		defer f.lock.Unlock()
		delete(f.subs, ch)
		close(ch)
	}()

	return ch
}
