package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// listSep separates items when a List travels as a single string.
const listSep = ","

// List is the canonical representation of the free-text set fields
// (chronic diseases, food and drug allergies).
// It decodes from either a comma-joined string or an array of strings and always encodes as an array.
// Items are trimmed, empty items dropped and duplicates removed (first occurrence wins).
type List []string

// ParseList splits a comma-joined string into a List.
func ParseList(s string) List {
	return NewList(strings.Split(s, listSep)...)
}

// NewList normalizes items into a List. It never returns nil.
func NewList(items ...string) List {
	l := make(List, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		l = append(l, item)
	}
	return l
}

// String joins the items for display.
func (l List) String() string {
	return strings.Join(l, listSep+" ")
}

func (l List) Equal(other List) bool {
	a, b := NewList(l...), NewList(other...)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (l List) Clone() List {
	return NewList(l...)
}

func (l List) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(NewList(l...)))
}

func (l *List) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decoding list")
	}
	*l = ToList(raw)
	return nil
}

// Value stores a List as a JSON array.
func (l List) Value() (driver.Value, error) {
	data, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *List) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = List{}
		return nil
	case []byte:
		return l.scanText(string(v))
	case string:
		return l.scanText(v)
	default:
		return fmt.Errorf("user.List: cannot scan %T", src)
	}
}

func (l *List) scanText(s string) error {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		return l.UnmarshalJSON([]byte(s))
	}
	*l = ParseList(s)
	return nil
}

// ToList converts any list-ish value (string, List, []string, decoded JSON array) into a List.
func ToList(v interface{}) List {
	switch val := v.(type) {
	case nil:
		return List{}
	case List:
		return val.Clone()
	case []string:
		return NewList(val...)
	case string:
		return ParseList(val)
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			items = append(items, ToText(item))
		}
		return NewList(items...)
	default:
		return NewList(ToText(val))
	}
}
