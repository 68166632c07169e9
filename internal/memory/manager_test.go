package memory

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestAccessTracker_Age(t *testing.T) {
	clock := newFakeClock()
	tr := NewAccessTracker(clock.Now)

	tr.Touch("tab-1")
	clock.Advance(90 * time.Second)

	age, ok := tr.Age("tab-1", clock.Now())
	if !ok || age != 90*time.Second {
		t.Fatalf("expected 90s age, got %v (%v)", age, ok)
	}
	if _, ok := tr.Age("tab-2", clock.Now()); ok {
		t.Error("untracked key should report absent")
	}

	tr.Remove("tab-1")
	if tr.Len() != 0 {
		t.Error("expected tracker to be empty")
	}
}

func TestScoped_CapacityEvictionDropsTrackerKey(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(clock)
	calcs := Bind[int](m, CategoryCalc, 2)

	calcs.Set("a", 1)
	calcs.Set("b", 2)
	calcs.Set("c", 3)

	if want := []string{"b", "c"}; !reflect.DeepEqual(calcs.IDs(), want) {
		t.Fatalf("expected %v, got %v", want, calcs.IDs())
	}
	if _, ok := m.Tracker().LastAccess("calc-a"); ok {
		t.Error("evicted key should leave the tracker")
	}
	if _, ok := m.Tracker().LastAccess("calc-c"); !ok {
		t.Error("inserted key should be tracked")
	}
}

func TestScoped_Delete(t *testing.T) {
	m := newTestManager(newFakeClock())
	tabs := Bind[string](m, CategoryTab, 0)
	tabs.Set("1", "x")

	if !tabs.Delete("1") {
		t.Fatal("expected delete to succeed")
	}
	if tabs.Delete("1") {
		t.Error("second delete should report absent")
	}
	if m.Tracker().Len() != 0 {
		t.Error("tracker should be empty after delete")
	}
}

func TestBind_UnknownCategoryPanics(t *testing.T) {
	m := newTestManager(newFakeClock())
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown category")
		}
	}()
	Bind[int](m, "proposal", 0)
}

func TestManager_ListRegistry(t *testing.T) {
	m := newTestManager(newFakeClock())
	fl := &fakeList{items: 25}
	m.RegisterList("events", fl)

	got, ok := ListAs[*fakeList](m, "events")
	if !ok || got != fl {
		t.Fatal("expected to get the registered list back")
	}
	if _, ok := ListAs[*fakeList](m, "missing"); ok {
		t.Error("missing list should not be found")
	}
	if ids := m.ListIDs(); !reflect.DeepEqual(ids, []string{"events"}) {
		t.Errorf("unexpected ids %v", ids)
	}

	m.UnregisterList("events")
	if _, ok := m.List("events"); ok {
		t.Error("list should be gone after unregister")
	}
	if fl.clearedCount() != 1 {
		t.Error("unregister should clear the page cache")
	}
}

func TestManager_Stats(t *testing.T) {
	m := newTestManager(newFakeClock())
	tabs := Bind[int](m, CategoryTab, 0)
	tabs.Set("1", 1)
	tabs.Set("2", 2)
	m.RegisterList("l", &fakeList{})
	m.RegisterCleanup("cb", func() error { return nil })

	s := m.Stats()
	if s.Entries[CategoryTab] != 2 || s.Entries[CategoryList] != 1 {
		t.Errorf("unexpected entries %v", s.Entries)
	}
	if s.TrackedKeys != 3 {
		t.Errorf("expected 3 tracked keys, got %d", s.TrackedKeys)
	}
	if !reflect.DeepEqual(s.Callbacks, []string{"cb"}) {
		t.Errorf("unexpected callbacks %v", s.Callbacks)
	}
	if s.Reaper.State != "stopped" {
		t.Errorf("expected stopped reaper, got %s", s.Reaper.State)
	}
	if err := m.PublishMetrics(context.Background()); err != nil {
		t.Errorf("PublishMetrics: %v", err)
	}
}

func TestManager_CustomCategories(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(Options{
		Now: clock.Now,
		Categories: []Category{
			{Name: CategoryTab, Prefix: "tab-", MaxAge: time.Minute},
			{Name: CategoryList, Prefix: "view-", MaxAge: time.Minute},
		},
	})
	tabs := Bind[int](m, CategoryTab, 0)
	tabs.Set("1", 1)
	m.RegisterList("v", &fakeList{})

	if _, ok := m.Tracker().LastAccess("view-v"); !ok {
		t.Fatal("list key should use the configured prefix")
	}

	clock.Advance(2 * time.Minute)
	res := m.ForceCleanup(context.Background())
	if res.Evicted != 2 {
		t.Errorf("expected both entries evicted with one-minute limits, got %+v", res)
	}
}
