package queue_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/queue"
)

func TestTryPopOnEmptyQueue(t *testing.T) {
	q := queue.New()
	if _, ok := q.TryPop(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestFIFOOrder(t *testing.T) {
	q := queue.New()
	for i := 0; i < 3; i++ {
		q.Push(artifact.Descriptor{FilePath: fmt.Sprint(i)})
	}
	for i := 0; i < 3; i++ {
		d, ok := q.TryPop()
		if !ok || d.FilePath != fmt.Sprint(i) {
			t.Fatalf("pop %d = %+v, %v", i, d, ok)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d after drain", q.Len())
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := queue.New()
	const producers, perProducer = 5, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(artifact.Descriptor{CameraID: fmt.Sprint(p), FilePath: fmt.Sprintf("%d-%d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for {
		d, ok := q.TryPop()
		if !ok {
			break
		}
		if seen[d.FilePath] {
			t.Fatalf("duplicate item %s", d.FilePath)
		}
		seen[d.FilePath] = true
	}
	if len(seen) != producers*perProducer {
		t.Fatalf("drained %d items, want %d", len(seen), producers*perProducer)
	}
}
