package session

import (
	"sync"
	"time"
)

// loopScheduler runs callbacks on the session loop from a ticker goroutine.
type loopScheduler struct {
	posted chan<- func()
}

func (l *loopScheduler) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	tick := func() {
		select {
		case <-done:
		default:
			fn()
		}
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case l.posted <- tick:
				case <-done:
					return
				}
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
