package loop

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tucpd/listening-app/pkg/models"
)

func TestSetPointBEngagesLoop(t *testing.T) {
	c := NewController(0)
	c.SetPointA(2.0)

	seekTo, err := c.SetPointB(5.0)
	if err != nil {
		t.Fatalf("SetPointB: %v", err)
	}
	if seekTo != 2.0 {
		t.Fatalf("expected seek to 2.0, got %v", seekTo)
	}
	st := c.State()
	if !st.ABLoopActive || *st.PointA != 2.0 || *st.PointB != 5.0 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestSetPointBRejectsInvalidRange(t *testing.T) {
	c := NewController(0)
	c.SetPointA(2.0)
	before := c.State()

	for _, b := range []float64{1.0, 2.0} {
		if _, err := c.SetPointB(b); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("SetPointB(%v): expected ErrInvalidRange, got %v", b, err)
		}
		if after := c.State(); !reflect.DeepEqual(before, after) {
			t.Fatalf("state changed: %+v -> %+v", before, after)
		}
	}
}

func TestSetPointBWithoutA(t *testing.T) {
	c := NewController(0)
	if _, err := c.SetPointB(3); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestSetPointAAfterB(t *testing.T) {
	c := NewController(0)
	c.SetPointA(2)
	c.SetPointB(5)

	// new A still before B keeps the loop
	c.SetPointA(3)
	if st := c.State(); !st.ABLoopActive || *st.PointA != 3 {
		t.Fatalf("expected active loop from 3, got %+v", st)
	}

	// A at or past B invalidates B
	c.SetPointA(5)
	st := c.State()
	if st.ABLoopActive || st.PointB != nil || *st.PointA != 5 {
		t.Fatalf("expected stale B discarded, got %+v", st)
	}
}

func TestClearLoopKeepsSentenceLoop(t *testing.T) {
	c := NewController(0)
	c.ToggleSentenceLoop()
	c.SetPointA(1)
	c.ClearLoop()

	st := c.State()
	if !st.SentenceLoopActive || st.PointA != nil || st.PointB != nil || st.ABLoopActive {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestToggleSentenceLoopDisablesAB(t *testing.T) {
	c := NewController(0)
	c.SetPointA(2)
	c.SetPointB(5)

	if on := c.ToggleSentenceLoop(); !on {
		t.Fatal("expected sentence loop on")
	}
	st := c.State()
	if !st.SentenceLoopActive || st.ABLoopActive || st.PointA != nil || st.PointB != nil {
		t.Fatalf("unexpected state: %+v", st)
	}

	if on := c.ToggleSentenceLoop(); on {
		t.Fatal("expected sentence loop off")
	}
}

func TestSetPointBDisablesSentenceLoop(t *testing.T) {
	c := NewController(0)
	c.ToggleSentenceLoop()
	c.SetPointA(1)
	c.SetPointB(2)

	if st := c.State(); st.SentenceLoopActive || !st.ABLoopActive {
		t.Fatalf("loops must be exclusive: %+v", st)
	}
}

func TestResetClearsEverything(t *testing.T) {
	states := []func(*Controller){
		func(c *Controller) {},
		func(c *Controller) { c.SetPointA(1) },
		func(c *Controller) { c.SetPointA(1); c.SetPointB(4) },
		func(c *Controller) { c.ToggleSentenceLoop() },
		func(c *Controller) { c.ToggleSentenceLoop(); c.SetPointA(3) },
	}
	for i, prepare := range states {
		c := NewController(0)
		prepare(c)
		c.Reset()
		if st := c.State(); !reflect.DeepEqual(st, models.LoopState{}) {
			t.Fatalf("case %d: expected empty state, got %+v", i, st)
		}
	}
}

func TestEvaluateABLoop(t *testing.T) {
	c := NewController(0)
	c.SetPointA(2.0)
	c.SetPointB(5.0)

	cases := []struct {
		t    float64
		seek bool
	}{
		{5.0, true},
		{1.9, true},
		{3.0, false},
		{2.0, false},
		{7.5, true},
	}
	for _, tc := range cases {
		to, ok := c.Evaluate(tc.t, nil)
		if ok != tc.seek {
			t.Fatalf("t=%v: seek=%v want %v", tc.t, ok, tc.seek)
		}
		if ok && to != 2.0 {
			t.Fatalf("t=%v: seek target %v", tc.t, to)
		}
	}
}

func TestEvaluateSentenceLoop(t *testing.T) {
	sentences := []models.Sentence{
		{Text: "first.", Start: 0, End: 3.5},
		{Text: "second.", Start: 3.8, End: 6.2},
	}
	c := NewController(0)
	c.ToggleSentenceLoop()

	cases := []struct {
		t      float64
		seek   bool
		target float64
	}{
		{1.0, false, 0},  // inside first sentence
		{3.5, false, 0},  // boundary is inclusive
		{3.6, true, 0},   // gap just after first sentence
		{6.4, true, 3.8}, // just after the last sentence
		{7.3, false, 0},  // outside tolerance
		{7.2, false, 0},  // exactly at tolerance
	}
	for _, tc := range cases {
		to, ok := c.Evaluate(tc.t, sentences)
		if ok != tc.seek || (ok && to != tc.target) {
			t.Fatalf("t=%v: got (%v,%v) want (%v,%v)", tc.t, to, ok, tc.target, tc.seek)
		}
	}
}

func TestEvaluateTunableTolerance(t *testing.T) {
	sentences := []models.Sentence{{Text: "only.", Start: 1, End: 2}}
	c := NewController(3)
	c.ToggleSentenceLoop()

	if to, ok := c.Evaluate(4.5, sentences); !ok || to != 1 {
		t.Fatalf("expected seek to 1 within widened tolerance, got (%v,%v)", to, ok)
	}
}

func TestEvaluateIdle(t *testing.T) {
	c := NewController(0)
	if _, ok := c.Evaluate(10, []models.Sentence{{Start: 0, End: 9.5}}); ok {
		t.Fatal("no loop active must not seek")
	}
}
