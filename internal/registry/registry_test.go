package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0)} }

func TestCreateWithDelete(t *testing.T) {
	r := New[*int](time.Minute, nil, nil)
	n := 0
	id := r.Create(&n)
	if id == "" || r.Len() != 1 {
		t.Fatalf("create failed")
	}
	if err := r.With(id, func(v *int) error { *v++; return nil }); err != nil {
		t.Fatalf("With: %v", err)
	}
	if n != 1 {
		t.Fatalf("value not mutated")
	}
	if _, err := r.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := r.With(id, func(*int) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := r.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestWithPropagatesError(t *testing.T) {
	r := New[string](0, nil, nil)
	id := r.Create("x")
	boom := errors.New("boom")
	if err := r.With(id, func(string) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

func TestExpiredEntryIsNotFound(t *testing.T) {
	c := newClock()
	r := New[string](time.Minute, c.Now, nil)
	id := r.Create("game")

	c.Advance(30 * time.Second)
	if _, err := r.Get(id); err != nil {
		t.Fatalf("fresh entry: %v", err)
	}
	if err := r.With(id, func(string) error { return nil }); err != nil {
		t.Fatalf("With refreshes: %v", err)
	}
	c.Advance(45 * time.Second)
	if _, err := r.Get(id); err != nil {
		t.Fatalf("use should have refreshed expiry: %v", err)
	}
	c.Advance(2 * time.Minute)
	if _, err := r.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestSweepEvictsAndSkipsBusy(t *testing.T) {
	c := newClock()
	r := New[string](time.Minute, c.Now, nil)
	var evicted []string
	r.OnEvict = func(id, v string) { evicted = append(evicted, v) }

	r.Create("idle")
	busy := r.Create("busy")
	fresh := r.Create("fresh")
	c.Advance(2 * time.Minute)
	if err := r.With(fresh, func(string) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired entry served: %v", err)
	}

	e, _ := r.lookup(busy)
	e.mu.Lock()
	if n := r.Sweep(); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
	e.mu.Unlock()
	if len(evicted) != 2 || r.Len() != 1 {
		t.Fatalf("evicted %v, len %d", evicted, r.Len())
	}
	if n := r.Sweep(); n != 1 || r.Len() != 0 {
		t.Fatalf("second sweep %d, len %d", n, r.Len())
	}
}

func TestSweepWithoutTTL(t *testing.T) {
	r := New[string](0, nil, nil)
	r.Create("forever")
	if r.Sweep() != 0 || r.Len() != 1 {
		t.Fatalf("entries without ttl must stay")
	}
}

func TestWithSerializesPerEntry(t *testing.T) {
	r := New[*int](0, nil, nil)
	n := 0
	id := r.Create(&n)
	other := r.Create(new(int))

	var inside int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.With(id, func(v *int) error {
				if atomic.AddInt32(&inside, 1) != 1 {
					t.Errorf("concurrent access to one entry")
				}
				*v++
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = r.With(other, func(v *int) error { *v++; return nil })
		}()
	}
	wg.Wait()
	if n != 50 {
		t.Fatalf("n = %d", n)
	}
}

func TestGetDoesNotRefreshExpiry(t *testing.T) {
	c := newClock()
	r := New[string](time.Minute, c.Now, nil)
	id := r.Create("game")

	c.Advance(40 * time.Second)
	if _, err := r.Get(id); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.Advance(40 * time.Second)
	if _, err := r.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get kept the entry alive: %v", err)
	}
}

func TestGetWaitsForWith(t *testing.T) {
	r := New[*int](0, nil, nil)
	n := 0
	id := r.Create(&n)

	inside := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = r.With(id, func(v *int) error {
			close(inside)
			<-release
			*v = 7
			return nil
		})
	}()
	<-inside

	got := make(chan int)
	go func() {
		v, _ := r.Get(id)
		got <- *v
	}()
	select {
	case <-got:
		t.Fatalf("Get returned while With held the entry")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	if v := <-got; v != 7 {
		t.Fatalf("Get saw %d, want 7", v)
	}
}
