package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/rpsarena/components"
	"github.com/pthm-cable/rpsarena/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction BookmarkType = "extinction"
	BookmarkTakeover   BookmarkType = "takeover"
	BookmarkComeback   BookmarkType = "comeback"
	BookmarkStalemate  BookmarkType = "stalemate"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Kind        string       `csv:"kind" json:"kind,omitempty"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"kind", b.Kind,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	cfg config.BookmarksConfig

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentMin   components.Counts // lowest nonzero count per kind since last comeback
	takenOver   [components.NumKinds]bool
	inStalemate bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int, cfg config.BookmarksConfig) *BookmarkDetector {
	if historySize < cfg.Stalemate.StableWindows {
		historySize = cfg.Stalemate.StableWindows
	}
	if historySize < 2 {
		historySize = 2
	}
	return &BookmarkDetector{
		cfg:         cfg,
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	counts := stats.Counts()

	if prev, ok := bd.last(); ok {
		bookmarks = append(bookmarks, bd.checkExtinction(prev.Counts(), counts, stats.WindowEndTick)...)
	}
	bookmarks = append(bookmarks, bd.checkTakeover(counts, stats.WindowEndTick)...)
	bookmarks = append(bookmarks, bd.checkComeback(counts, stats.WindowEndTick)...)

	bd.addToHistory(stats)

	if b := bd.checkStalemate(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the stored windows oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	ordered := make([]WindowStats, 0, bd.historySize)
	ordered = append(ordered, bd.history[bd.historyIdx:]...)
	return append(ordered, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) last() (WindowStats, bool) {
	if !bd.historyFull && bd.historyIdx == 0 {
		return WindowStats{}, false
	}
	idx := (bd.historyIdx - 1 + bd.historySize) % bd.historySize
	return bd.history[idx], true
}

func (bd *BookmarkDetector) checkExtinction(prev, cur components.Counts, tick int32) []Bookmark {
	var out []Bookmark
	for _, k := range components.Kinds {
		if prev[k] > 0 && cur[k] == 0 {
			out = append(out, Bookmark{
				Type:        BookmarkExtinction,
				Tick:        tick,
				Kind:        k.String(),
				Description: fmt.Sprintf("%s went extinct (was %d)", k, prev[k]),
			})
		}
	}
	return out
}

func (bd *BookmarkDetector) checkTakeover(cur components.Counts, tick int32) []Bookmark {
	total := cur.Total()
	if total == 0 {
		return nil
	}
	var out []Bookmark
	for _, k := range components.Kinds {
		share := float64(cur[k]) / float64(total)
		above := share >= bd.cfg.Takeover.Share
		if above && !bd.takenOver[k] {
			out = append(out, Bookmark{
				Type:        BookmarkTakeover,
				Tick:        tick,
				Kind:        k.String(),
				Description: fmt.Sprintf("%s holds %.0f%% of the population (%d/%d)", k, share*100, cur[k], total),
			})
		}
		bd.takenOver[k] = above
	}
	return out
}

func (bd *BookmarkDetector) checkComeback(cur components.Counts, tick int32) []Bookmark {
	var out []Bookmark
	for _, k := range components.Kinds {
		n := cur[k]
		if n == 0 {
			continue
		}
		low := bd.recentMin[k]
		if low == 0 || n < low {
			bd.recentMin[k] = n
			continue
		}
		if low <= bd.cfg.Comeback.MaxLow && n >= low*bd.cfg.Comeback.Multiplier {
			out = append(out, Bookmark{
				Type:        BookmarkComeback,
				Tick:        tick,
				Kind:        k.String(),
				Description: fmt.Sprintf("%s recovered from %d to %d", k, low, n),
			})
			// Reset the minimum after triggering
			bd.recentMin[k] = n
		}
	}
	return out
}

func (bd *BookmarkDetector) checkStalemate(stats WindowStats) *Bookmark {
	need := bd.cfg.Stalemate.StableWindows
	history := bd.getHistory()
	if need < 2 || len(history) < need {
		return nil
	}
	recent := history[len(history)-need:]

	stable := true
	series := make([]float64, need)
	for _, k := range components.Kinds {
		for i, h := range recent {
			series[i] = float64(h.Counts()[k])
		}
		mean, std := MeanStd(series)
		if mean == 0 || std/mean >= bd.cfg.Stalemate.CVThreshold {
			stable = false
			break
		}
	}

	if !stable {
		bd.inStalemate = false
		return nil
	}
	if bd.inStalemate {
		return nil
	}
	bd.inStalemate = true
	return &Bookmark{
		Type:        BookmarkStalemate,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("All kinds steady over %d windows (%s)", need, stats.Counts()),
	}
}
