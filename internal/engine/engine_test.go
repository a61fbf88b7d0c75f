package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
)

// --- PositionIterator Tests ---

func TestSlicePositionIterator_Basic(t *testing.T) {
	it := NewSlicePositionIterator([]int{1, 3, 5, 7})

	var got []int
	for it.Next() {
		got = append(got, it.Pos())
	}
	expected := []int{1, 3, 5, 7}
	if len(got) != len(expected) {
		t.Fatalf("expected %d positions, got %d", len(expected), len(got))
	}
	for i, p := range got {
		if p != expected[i] {
			t.Errorf("pos[%d] = %d, want %d", i, p, expected[i])
		}
	}
}

func TestSlicePositionIterator_Advance(t *testing.T) {
	it := NewSlicePositionIterator([]int{1, 3, 5, 7, 9, 11, 13, 15, 17})

	if !it.Advance(4) {
		t.Fatal("Advance(4) should find position >= 4")
	}
	if it.Pos() != 5 {
		t.Errorf("Pos = %d, want 5", it.Pos())
	}

	if !it.Advance(5) {
		t.Fatal("Advance(5) should stay on 5")
	}
	if it.Pos() != 5 {
		t.Errorf("Pos = %d, want 5", it.Pos())
	}

	if !it.Advance(16) {
		t.Fatal("Advance(16) should find 17")
	}
	if it.Pos() != 17 {
		t.Errorf("Pos = %d, want 17", it.Pos())
	}

	if it.Advance(100) {
		t.Error("Advance(100) should return false")
	}
}

func TestSlicePositionIterator_Empty(t *testing.T) {
	it := NewSlicePositionIterator(nil)
	if it.Next() {
		t.Error("empty iterator should return false")
	}
	if it.Advance(0) {
		t.Error("empty iterator should not advance")
	}
}

func TestSlicePositionIterator_Cost(t *testing.T) {
	it := NewSlicePositionIterator([]int{1, 2, 3, 4, 5})
	if it.Cost() != 5 {
		t.Errorf("Cost before Next = %d, want 5", it.Cost())
	}
	it.Next()
	if it.Cost() != 4 {
		t.Errorf("Cost = %d, want 4", it.Cost())
	}
}

// --- Conjunction Tests ---

func TestConjunctionIterator_Basic(t *testing.T) {
	a := NewSlicePositionIterator([]int{1, 2, 3, 5, 7})
	b := NewSlicePositionIterator([]int{2, 3, 4, 5, 8})

	got := Collect(NewConjunctionIterator([]PositionIterator{a, b}))

	expected := []int{2, 3, 5}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i, p := range got {
		if p != expected[i] {
			t.Errorf("pos[%d] = %d, want %d", i, p, expected[i])
		}
	}
}

func TestConjunctionIterator_NoOverlap(t *testing.T) {
	a := NewSlicePositionIterator([]int{1, 3, 5})
	b := NewSlicePositionIterator([]int{2, 4, 6})

	conj := NewConjunctionIterator([]PositionIterator{a, b})
	if conj.Next() {
		t.Error("expected no results for non-overlapping iterators")
	}
}

func TestIntersectPositions_ThreeWay(t *testing.T) {
	got := IntersectPositions([]int{1, 2, 3, 4, 5}, []int{2, 3, 5}, []int{3, 5, 7})
	if len(got) != 2 || got[0] != 3 || got[1] != 5 {
		t.Fatalf("IntersectPositions = %v, want [3 5]", got)
	}
	if IntersectPositions([]int{1}, nil) != nil {
		t.Error("intersection with an empty list must be empty")
	}
}

// --- Disjunction Tests ---

func TestDisjunctionIterator_Basic(t *testing.T) {
	a := NewSlicePositionIterator([]int{1, 3, 5})
	b := NewSlicePositionIterator([]int{2, 3, 6})

	got := Collect(NewDisjunctionIterator([]PositionIterator{a, b}))

	expected := []int{1, 2, 3, 5, 6}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i, p := range got {
		if p != expected[i] {
			t.Errorf("pos[%d] = %d, want %d", i, p, expected[i])
		}
	}
}

func TestDisjunctionIterator_Empty(t *testing.T) {
	disj := NewDisjunctionIterator(nil)
	if disj.Next() {
		t.Error("empty disjunction should return false")
	}
}

func TestDisjunctionIterator_Advance(t *testing.T) {
	a := NewSlicePositionIterator([]int{1, 5, 10})
	b := NewSlicePositionIterator([]int{3, 7, 10})

	disj := NewDisjunctionIterator([]PositionIterator{a, b})
	if !disj.Advance(6) {
		t.Fatal("Advance(6) should succeed")
	}
	if disj.Pos() != 7 {
		t.Errorf("Pos = %d, want 7", disj.Pos())
	}
	if !disj.Next() || disj.Pos() != 10 {
		t.Errorf("Next after Advance = %d, want 10", disj.Pos())
	}
	if disj.Next() {
		t.Error("10 must be emitted once")
	}
}

func TestMergePositions_Deduplicates(t *testing.T) {
	got := MergePositions([]int{0, 4, 9}, nil, []int{4, 5}, []int{9})
	expected := []int{0, 4, 5, 9}
	if len(got) != len(expected) {
		t.Fatalf("MergePositions = %v, want %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("pos[%d] = %d, want %d", i, got[i], expected[i])
		}
	}
}

// --- ExecutionContext Tests ---

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) Interrupted() bool {
	return m.Called().Bool(0)
}

func TestExecutionContext_TickPollsAtInterval(t *testing.T) {
	checker := &mockChecker{}
	checker.On("Interrupted").Return(false).Once()
	checker.On("Interrupted").Return(true).Once()

	ec := NewExecutionContext(context.Background(), 3).WithChecker(checker)
	for i := 0; i < 5; i++ {
		if !ec.Tick() {
			t.Fatalf("tick %d stopped early", i)
		}
	}
	if ec.Tick() {
		t.Fatal("sixth tick should observe the interrupt")
	}
	if !errors.Is(ec.Err(), ErrInterrupted) {
		t.Errorf("Err = %v, want ErrInterrupted", ec.Err())
	}
	checker.AssertNumberOfCalls(t, "Interrupted", 2)
}

func TestExecutionContext_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ec := NewExecutionContext(ctx, 0)
	cancel()

	if ec.Check() {
		t.Fatal("Check should fail after cancel")
	}
	if !errors.Is(ec.Err(), context.Canceled) || !errors.Is(ec.Err(), ErrInterrupted) {
		t.Errorf("Err = %v, want interrupted + canceled", ec.Err())
	}
	if ec.Running() {
		t.Error("token must stay stopped")
	}
}

func TestExecutionContext_AbortKeepsFirstReason(t *testing.T) {
	first := errors.New("first")
	ec := NewExecutionContext(context.Background(), 10)
	ec.Abort(first)
	ec.Abort(errors.New("second"))

	if ec.Err() != first {
		t.Errorf("Err = %v, want first", ec.Err())
	}

	ec.Rearm()
	if !ec.Running() {
		t.Error("Rearm should restart the token")
	}
	ec.Abort(nil)
	if !errors.Is(ec.Err(), ErrAborted) {
		t.Errorf("Abort(nil) = %v, want ErrAborted", ec.Err())
	}
}
