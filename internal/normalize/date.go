package normalize

import (
	"errors"
	"strings"
	"time"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
)

var errNoDate = errors.New("no interpretable date")

var dateFields = []string{"orderDate", "timestamp", "date", "createdAt"}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// resolveDate tries, per candidate field, the store timestamp type, then epoch
// milliseconds, then an ISO-8601 string. The first success wins.
func resolveDate(data map[string]any, keys []string, loc *time.Location) (time.Time, error) {
	for _, key := range keys {
		v, ok := data[key]
		if !ok || v == nil {
			continue
		}
		if t, ok := asTimestamp(v); ok {
			return dayIn(t, loc), nil
		}
		if ms, ok := toInt64(v); ok && ms > 0 {
			return dayIn(time.UnixMilli(ms), loc), nil
		}
		if s, ok := v.(string); ok {
			if t, ok := parseISO(s, loc); ok {
				return dayIn(t, loc), nil
			}
		}
	}
	return time.Time{}, errNoDate
}

func asTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case document.Timestamp:
		return t.Time(), true
	case *document.Timestamp:
		if t != nil {
			return t.Time(), true
		}
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t != nil && !t.IsZero() {
			return *t, true
		}
	case map[string]any:
		return timestampFromMap(t)
	}
	return time.Time{}, false
}

// timestampFromMap accepts the JSON export shapes of the store timestamp.
func timestampFromMap(m map[string]any) (time.Time, bool) {
	secRaw, ok := firstPresent(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, false
	}
	sec, ok := toInt64(secRaw)
	if !ok || sec <= 0 {
		return time.Time{}, false
	}
	var nanos int64
	if nRaw, ok := firstPresent(m, "nanos", "_nanoseconds", "nanoseconds"); ok {
		if n, ok := toInt64(nRaw); ok {
			nanos = n
		}
	}
	return time.Unix(sec, nanos), true
}

func parseISO(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dayIn(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
