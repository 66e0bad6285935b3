package debounce

import (
	"sync"
	"testing"
	"time"

	"led-service/internal/fsm"
	"led-service/internal/queue"
)

type sliceQueue struct {
	mu     sync.Mutex
	events []fsm.Event
	limit  int
}

func (q *sliceQueue) TryEnqueue(ev fsm.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.events) >= q.limit {
		return false
	}
	q.events = append(q.events, ev)
	return true
}

func TestBurstWithinWindowYieldsOnePress(t *testing.T) {
	q := &sliceQueue{}
	d := New(DefaultWindow, q)

	// contact bounce: five edges inside 12 ms
	for _, ts := range []int64{1000, 1002, 1005, 1009, 1012} {
		d.OnEdge(0, ts)
	}
	if len(q.events) != 1 || q.events[0] != fsm.EvPress1 {
		t.Fatalf("events = %v, want [press-1]", q.events)
	}
	if d.Suppressed() != 4 {
		t.Errorf("Suppressed() = %d, want 4", d.Suppressed())
	}
}

func TestWindowBoundary(t *testing.T) {
	tests := []struct {
		name   string
		second int64
		want   int
	}{
		{"inside", 1049, 1},
		{"exactly at window", 1050, 2},
		{"after", 1200, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &sliceQueue{}
			d := New(DefaultWindow, q)
			d.OnEdge(2, 1000)
			d.OnEdge(2, tt.second)
			if len(q.events) != tt.want {
				t.Errorf("got %d events, want %d", len(q.events), tt.want)
			}
		})
	}
}

func TestFirstEdgeAlwaysAccepted(t *testing.T) {
	q := &sliceQueue{}
	d := New(DefaultWindow, q)
	// monotonic clock close to zero right after boot
	d.OnEdge(1, 0)
	if len(q.events) != 1 || q.events[0] != fsm.EvPress2 {
		t.Fatalf("events = %v, want [press-2]", q.events)
	}
}

func TestInputsAreIndependent(t *testing.T) {
	q := &sliceQueue{}
	d := New(DefaultWindow, q)
	d.OnEdge(0, 1000)
	d.OnEdge(1, 1001)
	d.OnEdge(2, 1002)
	d.OnEdge(0, 1003)

	want := []fsm.Event{fsm.EvPress1, fsm.EvPress2, fsm.EvPress3}
	if len(q.events) != len(want) {
		t.Fatalf("events = %v, want %v", q.events, want)
	}
	for i := range want {
		if q.events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, q.events[i], want[i])
		}
	}
}

func TestUnknownInputIgnored(t *testing.T) {
	q := &sliceQueue{}
	d := New(DefaultWindow, q)
	d.OnEdge(-1, 1000)
	d.OnEdge(fsm.NumInputs, 1000)
	if len(q.events) != 0 || d.Accepted() != 0 || d.Suppressed() != 0 {
		t.Errorf("unknown inputs produced events %v", q.events)
	}
}

func TestFullQueueDropIsSilent(t *testing.T) {
	q := &sliceQueue{limit: 1}
	d := New(DefaultWindow, q)
	d.OnEdge(0, 1000)
	d.OnEdge(1, 1000)
	if d.Accepted() != 2 || d.Dropped() != 1 {
		t.Errorf("accepted=%d dropped=%d, want 2/1", d.Accepted(), d.Dropped())
	}
}

func TestConcurrentEdgesIntoRing(t *testing.T) {
	q := queue.New(32, fsm.EvNone)
	d := New(DefaultWindow, q)

	var wg sync.WaitGroup
	for input := 0; input < fsm.NumInputs; input++ {
		wg.Add(1)
		go func(input int) {
			defer wg.Done()
			for i := int64(0); i < 100; i++ {
				// ten physical presses, each with bounce
				d.OnEdge(input, (i/10)*100+i%10)
			}
		}(input)
	}
	wg.Wait()

	if got := q.Len(); got != 30 {
		t.Errorf("queued %d presses, want 30", got)
	}
	if d.Suppressed() != 270 {
		t.Errorf("Suppressed() = %d, want 270", d.Suppressed())
	}
	if d.Window() != 50*time.Millisecond {
		t.Errorf("Window() = %v", d.Window())
	}
}
