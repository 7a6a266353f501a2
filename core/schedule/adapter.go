// Package schedule maps teaching-schedule records into uniform calendar events
// and holds the schedule model of the API.
package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a schedule as decoded from the API. Field names vary between sources.
type Record map[string]interface{}

// Event is the uniform record consumed by calendar views.
type Event struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Start        string `json:"start"`
	End          string `json:"end,omitempty"`
	AllDay       bool   `json:"allDay"`
	Color        string `json:"color"`
	TeacherLabel string `json:"teacherLabel"`
	Location     string `json:"location,omitempty"`
}

const (
	// NoTeacher labels an event without an assigned teacher.
	NoTeacher    = "-"
	UntitledText = "Untitled"

	dateLayout = "2006-01-02"
)

// Candidate keys, in priority order. The first non-empty value wins.
var (
	StartKeys    = []string{"start", "startDate", "startTime", "beginDate", "begin", "date"}
	EndKeys      = []string{"end", "endDate", "endTime", "finishDate", "finish"}
	TitleKeys    = []string{"title", "subject", "courseName", "name"}
	TeacherKeys  = []string{"teacher", "instructor"}
	LocationKeys = []string{"location", "room", "place"}
)

// Palette colors events without an explicit color, by position.
var Palette = []string{
	"#3b82f6",
	"#10b981",
	"#f59e0b",
	"#ef4444",
	"#8b5cf6",
	"#14b8a6",
	"#ec4899",
	"#64748b",
}

// Adapt maps recs into events. Missing ids default to event-<index> and missing colors are
// taken from Palette by index, so neither is stable when the list changes between fetches.
func Adapt(recs []Record) []Event {
	evts := make([]Event, 0, len(recs))
	for i, rec := range recs {
		evts = append(evts, adaptOne(i, rec))
	}
	return evts
}

func adaptOne(i int, rec Record) Event {
	evt := Event{
		ID:           text(rec["id"]),
		Title:        rec.first(TitleKeys, text),
		Start:        rec.first(StartKeys, timeText),
		End:          rec.first(EndKeys, timeText),
		Color:        text(rec["color"]),
		TeacherLabel: NoTeacher,
		Location:     rec.first(LocationKeys, text),
	}
	if evt.ID == "" {
		evt.ID = "event-" + strconv.Itoa(i)
	}
	if evt.Title == "" {
		evt.Title = UntitledText
	}
	if evt.Color == "" {
		evt.Color = Palette[i%len(Palette)]
	}
	if allDay, ok := rec["allDay"].(bool); ok {
		evt.AllDay = allDay
	} else {
		evt.AllDay = isDate(evt.Start)
	}
	for _, key := range TeacherKeys {
		if label := TeacherLabel(rec[key]); label != NoTeacher {
			evt.TeacherLabel = label
			break
		}
	}
	return evt
}

func (rec Record) first(keys []string, conv func(interface{}) string) string {
	for _, key := range keys {
		if s := conv(rec[key]); s != "" {
			return s
		}
	}
	return ""
}

// TeacherLabel renders an assigned-teacher value: a string as is, a person record as
// "first last", falling back to its username, then its role. Anything else is NoTeacher.
func TeacherLabel(v interface{}) string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return s
		}
	case map[string]interface{}:
		first := text(val["firstName"])
		if first == "" {
			first = text(val["first_name"])
		}
		last := text(val["lastName"])
		if last == "" {
			last = text(val["last_name"])
		}
		if name := strings.TrimSpace(first + " " + last); name != "" {
			return name
		}
		if username := text(val["username"]); username != "" {
			return username
		}
		if role := text(val["role"]); role != "" {
			return role
		}
	}
	return NoTeacher
}

func text(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case map[string]interface{}, []interface{}:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// timeText is text with numbers read as unix seconds.
func timeText(v interface{}) string {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return ""
		}
		return time.Unix(int64(val), 0).UTC().Format(time.RFC3339)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return time.Unix(n, 0).UTC().Format(time.RFC3339)
		}
		return ""
	case bool:
		return ""
	default:
		return text(v)
	}
}

func isDate(s string) bool {
	if len(s) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
