package sonic

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestAudioBufferDropsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	b := newAudioBuffer(200, 5, discardLogger(), "s1",
		func([]byte) error { return nil },
		func() bool { return true },
	)
	// Park the drain so capacity handling is observable in isolation.
	b.mu.Lock()
	b.draining = true
	b.mu.Unlock()

	for i := 1; i <= 250; i++ {
		b.push([]byte(fmt.Sprintf("chunk-%d", i)))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.chunks) != 200 {
		t.Fatalf("buffered %d chunks, want 200", len(b.chunks))
	}
	if got := string(b.chunks[0]); got != "chunk-51" {
		t.Fatalf("oldest surviving chunk %q, want chunk-51", got)
	}
	if got := string(b.chunks[199]); got != "chunk-250" {
		t.Fatalf("newest chunk %q, want chunk-250", got)
	}
}

func TestAudioBufferSingleDrainWorker(t *testing.T) {
	t.Parallel()

	var inFlight, maxInFlight, emitted atomic.Int64
	b := newAudioBuffer(1000, 5, discardLogger(), "s1",
		func([]byte) error {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(100 * time.Microsecond)
			inFlight.Add(-1)
			emitted.Add(1)
			return nil
		},
		func() bool { return true },
	)

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				b.push([]byte{byte(i)})
			}
		}()
	}
	wg.Wait()

	waitFor(t, 2*time.Second, func() bool { return emitted.Load() == 200 }, "drain never finished")
	if maxInFlight.Load() != 1 {
		t.Fatalf("observed %d concurrent emits, want 1", maxInFlight.Load())
	}
}

func TestAudioBufferPreservesOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var got []string
	b := newAudioBuffer(1000, 5, discardLogger(), "s1",
		func(chunk []byte) error {
			mu.Lock()
			got = append(got, string(chunk))
			mu.Unlock()
			return nil
		},
		func() bool { return true },
	)

	for i := 0; i < 50; i++ {
		b.push([]byte(fmt.Sprintf("chunk-%d", i)))
	}

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 50
	}, "not all chunks forwarded")

	mu.Lock()
	defer mu.Unlock()
	for i, c := range got {
		if want := fmt.Sprintf("chunk-%d", i); c != want {
			t.Fatalf("chunk %d: got %q want %q", i, c, want)
		}
	}
}

func TestAudioBufferStopsWhenSessionDies(t *testing.T) {
	t.Parallel()

	var emitted atomic.Int64
	live := atomic.Bool{}
	live.Store(true)
	b := newAudioBuffer(1000, 5, discardLogger(), "s1",
		func([]byte) error {
			emitted.Add(1)
			return nil
		},
		func() bool { return live.Load() },
	)

	live.Store(false)
	for i := 0; i < 20; i++ {
		b.push([]byte{1})
	}

	waitFor(t, time.Second, func() bool { return b.pending() == 0 }, "buffer never discarded")
	if emitted.Load() != 0 {
		t.Fatalf("emitted %d chunks after deactivation", emitted.Load())
	}
}
