package feed

import "testing"

func TestRegistry_MarkOnce(t *testing.T) {
	r := NewRegistry()
	if !r.MarkProcessed("p1") {
		t.Fatal("first mark should claim")
	}
	if r.MarkProcessed("p1") {
		t.Error("second mark should not claim")
	}
	if !r.Processed("p1") {
		t.Error("p1 should be processed")
	}
	if r.Processed("p2") {
		t.Error("p2 should not be processed")
	}
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.MarkProcessed("p1")
	r.SetGroup("p1", &ControlGroup{PostID: "p1"})

	r.Reset()

	if r.Processed("p1") {
		t.Error("reset should drop markers")
	}
	if r.Group("p1") != nil {
		t.Error("reset should drop groups")
	}
	if !r.MarkProcessed("p1") {
		t.Error("post should be claimable again after reset")
	}
}

func TestRegistry_Prune(t *testing.T) {
	r := NewRegistry()
	r.MarkProcessed("p1")
	r.MarkProcessed("p2")
	r.MarkProcessed("p3")

	dropped := r.Prune(map[string]struct{}{"p2": {}})
	if dropped != 2 {
		t.Errorf("Prune: dropped %d, want 2", dropped)
	}
	if r.Processed("p1") || r.Processed("p3") {
		t.Error("pruned posts should lose their markers")
	}
	if !r.Processed("p2") {
		t.Error("live post should keep its marker")
	}
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry()
	r.MarkProcessed("p1")
	r.SetGroup("p1", &ControlGroup{PostID: "p1"})
	r.Reset()

	s := r.Stats()
	if s.Processed != 1 || s.Injected != 1 || s.Resets != 1 || s.Tracked != 0 {
		t.Errorf("Stats: got %+v", s)
	}
}
