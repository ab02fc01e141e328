package telemetry

import (
	"testing"

	"github.com/pthm-cable/rpsarena/config"
)

func testBookmarksConfig() config.BookmarksConfig {
	return config.BookmarksConfig{
		Takeover:  config.TakeoverConfig{Share: 0.667},
		Comeback:  config.ComebackConfig{MaxLow: 3, Multiplier: 3},
		Stalemate: config.StalemateConfig{CVThreshold: 0.1, StableWindows: 5},
	}
}

func window(tick int32, rock, paper, scissors int) WindowStats {
	return WindowStats{WindowEndTick: tick, Rock: rock, Paper: paper, Scissors: scissors}
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType, kind string) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ && (kind == "" || bm.Kind == kind) {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	bd.Check(window(60, 30, 50, 40))
	bookmarks := bd.Check(window(120, 0, 70, 50))

	if !hasBookmark(bookmarks, BookmarkExtinction, "rock") {
		t.Errorf("expected rock extinction, got %+v", bookmarks)
	}
	if hasBookmark(bookmarks, BookmarkExtinction, "paper") {
		t.Error("paper is still alive")
	}

	// Already extinct: no repeat
	bookmarks = bd.Check(window(180, 0, 60, 60))
	if hasBookmark(bookmarks, BookmarkExtinction, "") {
		t.Error("extinction should only trigger on the transition")
	}
}

func TestBookmarkDetector_Takeover(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	if bm := bd.Check(window(60, 40, 40, 40)); hasBookmark(bm, BookmarkTakeover, "") {
		t.Fatal("balanced population should not trigger takeover")
	}

	bookmarks := bd.Check(window(120, 10, 90, 20))
	if !hasBookmark(bookmarks, BookmarkTakeover, "paper") {
		t.Errorf("expected paper takeover, got %+v", bookmarks)
	}

	// Still above share: no repeat
	if bm := bd.Check(window(180, 5, 100, 15)); hasBookmark(bm, BookmarkTakeover, "paper") {
		t.Error("takeover should trigger once while above share")
	}
}

func TestBookmarkDetector_Comeback(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	bd.Check(window(60, 40, 40, 40))
	bd.Check(window(120, 2, 60, 58))
	bookmarks := bd.Check(window(180, 7, 55, 58))

	if !hasBookmark(bookmarks, BookmarkComeback, "rock") {
		t.Errorf("expected rock comeback from 2 to 7, got %+v", bookmarks)
	}

	// Minimum was reset to 7, so 9 is not a comeback
	if bm := bd.Check(window(240, 9, 55, 56)); hasBookmark(bm, BookmarkComeback, "rock") {
		t.Error("comeback should not repeat after reset")
	}
}

func TestBookmarkDetector_Stalemate(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	var found int
	for i := 0; i < 8; i++ {
		// Small wobble around 40 each
		r := 40 + i%2
		p := 40 - i%2
		bookmarks := bd.Check(window(int32(60*(i+1)), r, p, 120-r-p))
		if hasBookmark(bookmarks, BookmarkStalemate, "") {
			found++
			if i < 4 {
				t.Errorf("stalemate triggered after %d windows, need 5", i+1)
			}
		}
	}

	if found != 1 {
		t.Errorf("stalemate triggered %d times, want exactly 1", found)
	}
}

func TestBookmarkDetector_NoStalemateWhileShifting(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	for i := 0; i < 8; i++ {
		r := 60 - i*7
		bookmarks := bd.Check(window(int32(60*(i+1)), r, 30, 90-r))
		if hasBookmark(bookmarks, BookmarkStalemate, "") {
			t.Fatalf("unexpected stalemate at window %d", i)
		}
	}
}
