package document

import (
	"slices"
	"testing"
)

func TestGetBeforeSetReturnsFreshState(t *testing.T) {
	cache := NewCache()
	cache.Set("/docs/b.pdf", State{Loaded: true, Zoom: 2, PageIndex: 4, Document: &fakeDoc{pages: 5}})

	st := cache.Get("/docs/a.pdf")
	if st.Path != "/docs/a.pdf" {
		t.Fatalf("expected state for a.pdf, got %q", st.Path)
	}
	if st.Loaded || st.Document != nil || st.PageIndex != 0 || st.Zoom != 1 || st.Err != nil {
		t.Fatalf("expected fresh unloaded state, got %+v", st)
	}
	if cache.HasLoadedState("/docs/a.pdf") {
		t.Fatalf("Get must not create a loaded entry")
	}
}

func TestSetClearAndPaths(t *testing.T) {
	cache := NewCache()
	cache.Set("/a", State{Loaded: true})
	cache.Set("/b", State{})
	cache.Set("/a", State{Loaded: true, PageIndex: 1})

	if !slices.Equal(cache.Paths(), []string{"/a", "/b"}) {
		t.Fatalf("unexpected paths %v", cache.Paths())
	}
	if !cache.HasLoadedState("/a") || cache.HasLoadedState("/b") {
		t.Fatalf("unexpected loaded flags")
	}
	if got := cache.Get("/a"); got.PageIndex != 1 || got.Path != "/a" {
		t.Fatalf("expected replaced state, got %+v", got)
	}

	cache.Clear("/a")
	if cache.HasLoadedState("/a") || !slices.Equal(cache.Paths(), []string{"/b"}) {
		t.Fatalf("expected /a cleared, paths %v", cache.Paths())
	}

	cache.ClearAll()
	if cache.Len() != 0 || len(cache.Paths()) != 0 {
		t.Fatalf("expected empty cache")
	}
}

func TestUpdateCanDecline(t *testing.T) {
	cache := NewCache()
	changed := cache.Update("/a", func(current State, present bool) (State, bool) {
		if present {
			t.Fatalf("expected no entry")
		}
		return current, false
	})
	if changed || cache.Len() != 0 {
		t.Fatalf("declined update must not write")
	}
}

func TestParseModeAndNext(t *testing.T) {
	mode, err := ParseMode("Two-Up")
	if err != nil || mode != ModeTwoUp {
		t.Fatalf("expected two-up, got %q (%v)", mode, err)
	}
	if _, err := ParseMode("spiral"); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
	if ModeTwoUp.Next() != ModeSinglePage {
		t.Fatalf("expected mode cycle to wrap")
	}
}
