package util

import "testing"

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		rb.Push(i)
	}
	if rb.Len() != 3 {
		t.Fatalf("Len = %d, want 3", rb.Len())
	}
	got := rb.Snapshot()
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot = %v, want %v", got, want)
		}
	}
}

func TestRingBufferPartialFill(t *testing.T) {
	rb := NewRingBuffer[string](4)
	rb.Push("a")
	rb.Push("b")
	got := rb.Snapshot()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Snapshot = %v", got)
	}
}
