package ratelimit_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/rosterlab/rosterlab/internal/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSlidingWindow(t *testing.T) {
	Convey("Given a limiter of 4 requests per minute", t, func() {
		clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
		l := ratelimit.New(4, time.Minute, ratelimit.WithClock(clock.Now))

		Convey("When a user sends 4 requests spread over the window", func() {
			for i := 0; i < 4; i++ {
				ok, _ := l.Allow("ash")
				So(ok, ShouldBeTrue)
				clock.Advance(10 * time.Second)
			}

			Convey("Then the 5th is rejected with the time left on the oldest", func() {
				ok, retry := l.Allow("ash")
				So(ok, ShouldBeFalse)
				So(retry, ShouldEqual, 20*time.Second)
			})

			Convey("Then another user is unaffected", func() {
				ok, _ := l.Allow("misty")
				So(ok, ShouldBeTrue)
			})

			Convey("Then a request succeeds once the oldest has left the window", func() {
				clock.Advance(20 * time.Second)
				ok, _ := l.Allow("ash")
				So(ok, ShouldBeTrue)

				ok, retry := l.Allow("ash")
				So(ok, ShouldBeFalse)
				So(retry, ShouldEqual, 10*time.Second)
			})
		})

		Convey("When requests are rejected", func() {
			for i := 0; i < 10; i++ {
				l.Allow("brock")
			}

			Convey("Then rejections are not counted against the next window", func() {
				clock.Advance(time.Minute)
				for i := 0; i < 4; i++ {
					ok, _ := l.Allow("brock")
					So(ok, ShouldBeTrue)
				}
			})
		})

		Convey("When keys go idle", func() {
			l.Allow("a")
			l.Allow("b")
			clock.Advance(30 * time.Second)
			l.Allow("c")
			clock.Advance(31 * time.Second)

			Convey("Then Sweep drops only the expired ones", func() {
				So(l.Sweep(), ShouldEqual, 2)
				So(l.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the key is blank", func() {
			ok, _ := l.Allow("  ")
			So(ok, ShouldBeTrue)

			Convey("Then it shares the anonymous bucket", func() {
				for i := 0; i < 3; i++ {
					l.Allow("anonymous")
				}
				ok, _ := l.Allow("")
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a disabled limiter", t, func() {
		l := ratelimit.New(0, time.Minute)

		Convey("Then everything is allowed", func() {
			for i := 0; i < 100; i++ {
				ok, _ := l.Allow("x")
				So(ok, ShouldBeTrue)
			}
		})
	})
}

func TestSlidingWindow_ExactlyNPerWindowUnderConcurrency(t *testing.T) {
	Convey("Given 50 goroutines racing on one key", t, func() {
		l := ratelimit.New(10, time.Hour)
		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := l.Allow("u"); ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly 10 are allowed", func() {
			So(allowed, ShouldEqual, 10)
		})
	})
}

func TestSlidingWindow_RunStopsOnCancel(t *testing.T) {
	l := ratelimit.New(1, time.Millisecond)
	for i := 0; i < 5; i++ {
		l.Allow(fmt.Sprintf("user-%d", i))
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 2*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for l.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if n := l.Len(); n != 0 {
		t.Errorf("Len() after Run = %d, want 0", n)
	}
}
