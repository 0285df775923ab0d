package series

import (
	"sync"
	"testing"
)

func TestBounded_AppendEvictsOldest(t *testing.T) {
	b := NewBounded[int](3)
	evicted := 0
	for i := 1; i <= 5; i++ {
		evicted += b.Append(i)
	}
	if evicted != 2 {
		t.Fatalf("evicted = %d, want 2", evicted)
	}
	got := b.Snapshot()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if last, ok := b.Last(); !ok || last != 5 {
		t.Fatalf("last = %v, %v", last, ok)
	}
}

func TestBounded_TrimToKeepsNewestInOrder(t *testing.T) {
	b := NewBounded[int](0)
	for i := 0; i < 1200; i++ {
		b.Append(i)
	}
	if dropped := b.TrimTo(300); dropped != 900 {
		t.Fatalf("dropped = %d", dropped)
	}
	got := b.Snapshot()
	if len(got) != 300 {
		t.Fatalf("len = %d", len(got))
	}
	for i, v := range got {
		if v != 900+i {
			t.Fatalf("got[%d] = %d, want %d", i, v, 900+i)
		}
	}
	if dropped := b.TrimTo(500); dropped != 0 {
		t.Fatalf("trim above length dropped %d", dropped)
	}
}

func TestBounded_SnapshotIsACopy(t *testing.T) {
	b := NewBounded[int](10)
	b.Append(1)
	s := b.Snapshot()
	s[0] = 99
	if got := b.Snapshot()[0]; got != 1 {
		t.Fatalf("snapshot aliases storage: %d", got)
	}
}

func TestBounded_ConcurrentAppendAndTrim(t *testing.T) {
	b := NewBounded[int](1000)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			b.Append(i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			b.TrimTo(100)
		}
	}()
	wg.Wait()

	got := b.Snapshot()
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("order broken at %d: %d then %d", i, got[i-1], got[i])
		}
	}
	if last, _ := b.Last(); last != 4999 {
		t.Fatalf("last = %d", last)
	}
}

func TestBounded_Reset(t *testing.T) {
	b := NewBounded[string](5)
	b.Append("a")
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("len = %d", b.Len())
	}
}
