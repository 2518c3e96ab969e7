package pagination

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how a since threshold is applied on the client side.
type Mode int

const (
	// ModeAuto defers to the resource kind's default.
	ModeAuto Mode = iota

	// ModeServer relies on the server-side since parameter only.
	ModeServer

	// ModeLastItem stops paging once the last item of a page is older than the threshold.
	// Items of that page are still emitted.
	ModeLastItem

	// ModeLastItemFiltered behaves like ModeLastItem and also drops items older than
	// the threshold.
	ModeLastItemFiltered
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeServer:
		return "server"
	case ModeLastItem:
		return "last-item"
	case ModeLastItemFiltered:
		return "filter"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses the CLI spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "server":
		return ModeServer, nil
	case "last-item":
		return ModeLastItem, nil
	case "filter":
		return ModeLastItemFiltered, nil
	default:
		return ModeAuto, fmt.Errorf("unknown cutoff mode %q (want auto, server, last-item or filter)", s)
	}
}

// Cutoff decides which items to keep and when to stop following next links.
type Cutoff[T any] interface {
	// Keep reports whether an item is emitted.
	Keep(item T) bool

	// Stop is evaluated after a page has been emitted, with that page's last item.
	Stop(last T) bool
}

// SincePolicy applies a since threshold using an item timestamp.
//
// The last-item rule assumes the listing is ordered by the timestamp. The walker
// does not verify that ordering.
type SincePolicy[T any] struct {
	Since     time.Time
	Mode      Mode
	Timestamp func(T) time.Time
}

// NewSincePolicy returns nil when no client-side cutoff applies, so callers can pass
// the result straight to NewWalker.
func NewSincePolicy[T any](since time.Time, mode Mode, timestamp func(T) time.Time) Cutoff[T] {
	if since.IsZero() || timestamp == nil {
		return nil
	}
	if mode != ModeLastItem && mode != ModeLastItemFiltered {
		return nil
	}
	return &SincePolicy[T]{Since: since, Mode: mode, Timestamp: timestamp}
}

func (p *SincePolicy[T]) Keep(item T) bool {
	if p.Mode != ModeLastItemFiltered || p.Since.IsZero() {
		return true
	}
	return !p.Timestamp(item).Before(p.Since)
}

func (p *SincePolicy[T]) Stop(last T) bool {
	if p.Since.IsZero() {
		return false
	}
	switch p.Mode {
	case ModeLastItem, ModeLastItemFiltered:
		return p.Timestamp(last).Before(p.Since)
	default:
		return false
	}
}
