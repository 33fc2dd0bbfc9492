package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/basket/textlens/internal/bus"
	"github.com/charmbracelet/lipgloss"
)

type ActivityItem struct {
	ID        string
	Icon      string
	Message   string
	Detail    string
	StartedAt time.Time
	DoneAt    *time.Time
}

// ActivityFeed keeps the most recent session and analysis events.
type ActivityFeed struct {
	mu        sync.Mutex
	items     []ActivityItem
	collapsed bool
	maxItems  int
	now       func() time.Time
}

func NewActivityFeed() *ActivityFeed {
	return &ActivityFeed{maxItems: 6, now: time.Now}
}

func (f *ActivityFeed) Add(item ActivityItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.StartedAt.IsZero() {
		item.StartedAt = f.now()
	}
	f.items = append(f.items, item)
	if len(f.items) > f.maxItems {
		f.items = f.items[len(f.items)-f.maxItems:]
	}
}

// Complete marks the item with id as finished.
func (f *ActivityFeed) Complete(id, icon, detail string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].DoneAt == nil {
			f.items[i].Icon = icon
			f.items[i].DoneAt = &now
			f.items[i].Detail = detail
			return true
		}
	}
	return false
}

// Observe records a bus event.
func (f *ActivityFeed) Observe(ev bus.Event) {
	switch p := ev.Payload.(type) {
	case bus.AnalysisStartedEvent:
		f.Add(ActivityItem{ID: p.RunID, Icon: "…", Message: "analysis " + strings.Join(p.Methods, ",")})
	case bus.AnalysisCompletedEvent:
		f.Complete(p.RunID, "✓", fmt.Sprintf("%d tokens", p.TokenCount))
	case bus.AnalysisFailedEvent:
		f.Complete(p.RunID, "✗", p.Error)
	case bus.FileRejectedEvent:
		f.addDone("!", "rejected "+filepath.Base(p.FileName), p.Reason)
	case bus.TextChangedEvent:
		if p.Source == "file" {
			f.addDone("↻", "loaded "+p.FileName, fmt.Sprintf("%d bytes", p.Length))
		}
	}
}

func (f *ActivityFeed) addDone(icon, msg, detail string) {
	now := f.now()
	f.Add(ActivityItem{Icon: icon, Message: msg, Detail: detail, StartedAt: now, DoneAt: &now})
}

func (f *ActivityFeed) Toggle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collapsed = !f.collapsed
}

func (f *ActivityFeed) HasActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.DoneAt == nil {
			return true
		}
	}
	return false
}

func (f *ActivityFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// CleanupOld drops finished items older than maxAge.
func (f *ActivityFeed) CleanupOld(maxAge time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	kept := f.items[:0]
	removed := 0
	for _, it := range f.items {
		if it.DoneAt != nil && now.Sub(*it.DoneAt) >= maxAge {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	f.items = kept
	return removed
}

func (f *ActivityFeed) View() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == 0 {
		return ""
	}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if f.collapsed {
		return dim.Render(fmt.Sprintf("── %d events (l to expand) ──", len(f.items))) + "\n"
	}

	itemS := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	var out strings.Builder
	out.WriteString(dim.Render("── Activity (l to collapse) ──") + "\n")
	for _, it := range f.items {
		line := it.Icon + " " + it.Message
		if it.DoneAt != nil {
			if d := it.DoneAt.Sub(it.StartedAt); d > 0 {
				line += fmt.Sprintf(" (%s)", d.Truncate(time.Millisecond))
			}
		} else {
			line += fmt.Sprintf(" (%s)", f.now().Sub(it.StartedAt).Truncate(time.Second))
		}
		if it.Detail != "" {
			line += dim.Render(" " + it.Detail)
		}
		out.WriteString(itemS.Render(line) + "\n")
	}
	return out.String()
}
