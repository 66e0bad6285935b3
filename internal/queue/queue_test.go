package queue

import (
	"sync"
	"testing"
)

func TestFIFOOrder(t *testing.T) {
	q := New(8, -1)
	for i := 0; i < 5; i++ {
		if !q.TryEnqueue(i) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	for i := 0; i < 5; i++ {
		if got := q.TryDequeue(); got != i {
			t.Fatalf("dequeue #%d = %d, want %d", i, got, i)
		}
	}
	if got := q.TryDequeue(); got != -1 {
		t.Errorf("empty dequeue = %d, want sentinel -1", got)
	}
}

func TestOverflowDropsNewest(t *testing.T) {
	q := New(32, -1)

	accepted := 0
	for i := 0; i < 40; i++ {
		if q.TryEnqueue(i) {
			accepted++
		}
	}
	if accepted != 32 {
		t.Fatalf("accepted %d, want 32", accepted)
	}
	if q.Dropped() != 8 {
		t.Errorf("Dropped() = %d, want 8", q.Dropped())
	}
	if q.Len() != 32 {
		t.Errorf("Len() = %d, want 32", q.Len())
	}

	for i := 0; i < 32; i++ {
		if got := q.TryDequeue(); got != i {
			t.Fatalf("dequeue #%d = %d, want %d", i, got, i)
		}
	}
	if got := q.TryDequeue(); got != -1 {
		t.Errorf("queue should be drained, got %d", got)
	}
}

func TestFullQueueIsUnchangedByRejectedEnqueue(t *testing.T) {
	q := New(2, 0)
	q.TryEnqueue(1)
	q.TryEnqueue(2)
	if q.TryEnqueue(3) {
		t.Fatal("enqueue into full queue succeeded")
	}
	if got := q.TryDequeue(); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if !q.TryEnqueue(4) {
		t.Fatal("enqueue after dequeue rejected")
	}
	if got := q.TryDequeue(); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
	if got := q.TryDequeue(); got != 4 {
		t.Errorf("got %d, want 4", got)
	}
}

func TestWrapAroundManyLaps(t *testing.T) {
	q := New(3, -1)
	next := 0
	for lap := 0; lap < 100; lap++ {
		q.TryEnqueue(lap*2 + 0)
		q.TryEnqueue(lap*2 + 1)
		for i := 0; i < 2; i++ {
			if got := q.TryDequeue(); got != next {
				t.Fatalf("lap %d: got %d, want %d", lap, got, next)
			}
			next++
		}
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	const (
		producers = 4
		perProd   = 500
	)
	q := New(64, -1)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				for !q.TryEnqueue(p*perProd + i) {
				}
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	seen := make(map[int]bool)
	lastPerProducer := make([]int, producers)
	for i := range lastPerProducer {
		lastPerProducer[i] = -1
	}
	for len(seen) < producers*perProd {
		v := q.TryDequeue()
		if v == -1 {
			continue
		}
		if seen[v] {
			t.Fatalf("value %d delivered twice", v)
		}
		seen[v] = true
		p, i := v/perProd, v%perProd
		if i <= lastPerProducer[p] {
			t.Fatalf("producer %d reordered: %d after %d", p, i, lastPerProducer[p])
		}
		lastPerProducer[p] = i
	}
	<-done
	if q.Accepted() != producers*perProd {
		t.Errorf("Accepted() = %d, want %d", q.Accepted(), producers*perProd)
	}
}
