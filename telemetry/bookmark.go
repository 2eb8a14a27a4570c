package telemetry

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/segregation/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkConverged       BookmarkType = "converged"
	BookmarkSegregationJump BookmarkType = "segregation_jump"
	BookmarkPlateau         BookmarkType = "plateau"
	BookmarkGridlock        BookmarkType = "gridlock"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments in a run.
type BookmarkDetector struct {
	cfg config.BookmarksConfig

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// Latches so each episode is reported once
	converged  bool
	onPlateau  bool
	inGridlock bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int, cfg config.BookmarksConfig) *BookmarkDetector {
	if historySize < cfg.Plateau.Windows {
		historySize = cfg.Plateau.Windows
	}
	if historySize < 3 {
		historySize = 3
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

	// Converged: the window ended on a tick in which nobody moved
	if b := bd.checkConverged(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Gridlock: unhappy agents found but none could move
	if b := bd.checkGridlock(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Segregation jump: well above the rolling mean
	if b := bd.checkSegregationJump(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Update history before the plateau check so the window counts itself
	bd.addToHistory(stats)

	// Plateau: agents still move but segregation has stopped changing
	if b := bd.checkPlateau(stats); b != nil {
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

// recent returns the last n windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	count := bd.historyIdx
	if bd.historyFull {
		count = bd.historySize
	}
	if n > count {
		n = count
	}
	out := make([]WindowStats, 0, n)
	for i := n; i > 0; i-- {
		idx := (bd.historyIdx - i + bd.historySize) % bd.historySize
		out = append(out, bd.history[idx])
	}
	return out
}

func (bd *BookmarkDetector) checkConverged(stats WindowStats) *Bookmark {
	if bd.converged || !stats.Converged {
		return nil
	}
	bd.converged = true
	return &Bookmark{
		Type:        BookmarkConverged,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("No relocation on tick %d, segregation %.3f", stats.WindowEndTick, stats.Segregation),
	}
}

func (bd *BookmarkDetector) checkGridlock(stats WindowStats) *Bookmark {
	gridlocked := stats.Unsatisfied > 0 && stats.Stranded == stats.Unsatisfied
	if !gridlocked {
		bd.inGridlock = false
		return nil
	}
	if bd.inGridlock {
		return nil
	}
	bd.inGridlock = true
	return &Bookmark{
		Type:        BookmarkGridlock,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d unsatisfied draws stranded without empty cells", stats.Stranded),
	}
}

func (bd *BookmarkDetector) checkSegregationJump(stats WindowStats) *Bookmark {
	if !stats.SegregationDefined() {
		return nil
	}

	var values []float64
	for _, h := range bd.recent(bd.historySize) {
		if h.SegregationDefined() {
			values = append(values, h.Segregation)
		}
	}
	if len(values) < 3 {
		return nil
	}

	avg := stat.Mean(values, nil)
	if stats.Segregation-avg > bd.cfg.SegregationJump.Delta {
		return &Bookmark{
			Type:        BookmarkSegregationJump,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Segregation %.3f is %.3f above rolling mean %.3f", stats.Segregation, stats.Segregation-avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPlateau(stats WindowStats) *Bookmark {
	windows := bd.cfg.Plateau.Windows
	recent := bd.recent(windows)

	flat := stats.Relocations > 0 && len(recent) == windows
	values := make([]float64, 0, len(recent))
	for _, h := range recent {
		if !h.SegregationDefined() {
			flat = false
			break
		}
		values = append(values, h.Segregation)
	}

	var std float64
	if flat {
		std = stat.StdDev(values, nil)
		flat = !math.IsNaN(std) && std < bd.cfg.Plateau.StdThreshold
	}

	if !flat {
		bd.onPlateau = false
		return nil
	}
	if bd.onPlateau {
		return nil
	}
	bd.onPlateau = true
	return &Bookmark{
		Type:        BookmarkPlateau,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Segregation steady at %.3f (std %.4f over %d windows) while agents still move", stats.Segregation, std, windows),
	}
}
