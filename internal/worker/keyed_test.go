package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("app-1")
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected one holder at a time, saw %d", maxInside)
	}
	if k.Len() != 0 {
		t.Errorf("expected released keys to be dropped, %d remain", k.Len())
	}
}

func TestKeyedMutex_DifferentKeysRunInParallel(t *testing.T) {
	k := NewKeyedMutex()

	unlock := k.Lock("app-1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		release := k.Lock("app-2")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on app-2 waited for app-1")
	}
}

func TestKeyedMutex_UnlockIsIdempotent(t *testing.T) {
	k := NewKeyedMutex()
	unlock := k.Lock("app-1")
	unlock()
	unlock()

	again := k.Lock("app-1")
	again()
}
