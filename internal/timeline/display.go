package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/akasha/internal/event"
)

// Mode selects how timestamps are shown. Every mode is a rendering of the
// same stored UTC millisecond instant.
type Mode string

const (
	// ModeLocal renders in the viewer's zone with an explicit offset.
	ModeLocal Mode = "local"
	// ModeUTC renders in UTC.
	ModeUTC Mode = "utc"
	// ModeISO8601 renders RFC 3339 with milliseconds and offset.
	ModeISO8601 Mode = "iso8601"
)

// Modes lists the supported display modes.
var Modes = []Mode{ModeLocal, ModeUTC, ModeISO8601}

const (
	layoutLocal   = "2006-01-02 15:04:05.000 -0700"
	layoutUTC     = "2006-01-02 15:04:05.000 UTC"
	layoutISO8601 = "2006-01-02T15:04:05.000Z07:00"
)

// ParseMode validates a mode name. The empty string means local.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeUTC:
		return ModeUTC, nil
	case ModeISO8601, "iso":
		return ModeISO8601, nil
	default:
		return "", fmt.Errorf("unknown time mode %q (want local, utc or iso8601)", s)
	}
}

// FormatTime renders a UTC millisecond timestamp. loc is used by local and
// iso8601; nil means time.Local.
func FormatTime(ms int64, mode Mode, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(ms)
	switch mode {
	case ModeUTC:
		return t.UTC().Format(layoutUTC)
	case ModeISO8601:
		return t.In(loc).Format(layoutISO8601)
	default:
		return t.In(loc).Format(layoutLocal)
	}
}

// ParseTime reverses FormatTime, returning UTC milliseconds.
func ParseTime(s string, mode Mode, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.Local
	}
	layout := layoutLocal
	switch mode {
	case ModeUTC:
		layout = layoutUTC
		loc = time.UTC
	case ModeISO8601:
		layout = layoutISO8601
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return 0, fmt.Errorf("parse %s time: %w", mode, err)
	}
	return t.UnixMilli(), nil
}

// ParseInstant accepts any display format, RFC 3339, or a bare date or
// date-time in loc. It is meant for user input such as --since.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{
		layoutISO8601,
		time.RFC3339Nano,
		layoutUTC,
		layoutLocal,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		lloc := loc
		if layout == layoutUTC {
			lloc = time.UTC
		}
		if t, err := time.ParseInLocation(layout, s, lloc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// RenderLine renders the one-line form: #<id> [<kind>] <summary> @ <time>
func RenderLine(e event.Event, mode Mode, loc *time.Location) string {
	return fmt.Sprintf("#%d [%s] %s @ %s", e.ID, e.Kind, e.Summary(), FormatTime(e.Timestamp, mode, loc))
}

// RenderDetail renders the multi-line form used by view and root.
func RenderDetail(e event.Event, mode Mode, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(RenderLine(e, mode, loc))
	b.WriteByte('\n')

	field := func(name, value string) {
		fmt.Fprintf(&b, "  %-9s %s\n", name+":", value)
	}
	if e.HasParent() {
		field("parent", fmt.Sprintf("#%d", e.Parent))
	}
	switch {
	case e.Author != "" && e.AuthorEmail != "":
		field("author", fmt.Sprintf("%s <%s>", e.Author, e.AuthorEmail))
	case e.Author != "":
		field("author", e.Author)
	}
	if snap, ok := e.Snapshot(); ok {
		field("snapshot", snap.GetString("fingerprint"))
	}
	field("checksum", fmt.Sprintf("%08x", e.Checksum))
	if e.Legacy {
		field("format", "legacy")
	}

	if body := e.Body(); body != "" {
		b.WriteByte('\n')
		for _, line := range strings.Split(body, "\n") {
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
