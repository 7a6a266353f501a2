package user

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Fields is a partial mapping from recognized User keys (JSON names) to values.
// Text keys hold a string, list keys hold a List.
type Fields map[string]interface{}

type fieldInfo struct {
	index int
	list  bool
}

var (
	fieldIndex, fieldKeys = buildFieldIndex()
	listType              = reflect.TypeOf(List(nil))
)

func buildFieldIndex() (map[string]fieldInfo, []string) {
	t := reflect.TypeOf(User{})
	index := make(map[string]fieldInfo, t.NumField())
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fld := t.Field(i)
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		index[name] = fieldInfo{index: i, list: fld.Type == listType}
		keys = append(keys, name)
	}
	return index, keys
}

// FieldKeys returns every recognized key, in declaration order.
func FieldKeys() []string {
	keys := make([]string, len(fieldKeys))
	copy(keys, fieldKeys)
	return keys
}

func IsKnownField(key string) bool {
	_, ok := fieldIndex[key]
	return ok
}

func IsListField(key string) bool {
	return fieldIndex[key].list
}

// Fields returns every recognized key of u.
func (u *User) Fields() Fields {
	flds := make(Fields, len(fieldKeys))
	rv := reflect.ValueOf(u).Elem()
	for _, key := range fieldKeys {
		info := fieldIndex[key]
		val := rv.Field(info.index)
		if info.list {
			flds[key] = ToList(val.Interface())
		} else {
			flds[key] = val.String()
		}
	}
	return flds
}

// Apply sets every recognized key of flds on u. Unknown keys are ignored.
func (u *User) Apply(flds Fields) {
	rv := reflect.ValueOf(u).Elem()
	for key, v := range flds {
		info, ok := fieldIndex[key]
		if !ok {
			continue
		}
		if info.list {
			rv.Field(info.index).Set(reflect.ValueOf(ToList(v)))
		} else {
			rv.Field(info.index).SetString(ToText(v))
		}
	}
}

// Keys returns the keys of flds, sorted.
func (flds Fields) Keys() []string {
	keys := make([]string, 0, len(flds))
	for k := range flds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep copies flds.
func (flds Fields) Clone() Fields {
	c := make(Fields, len(flds))
	for k, v := range flds {
		if l, ok := v.(List); ok {
			c[k] = l.Clone()
		} else {
			c[k] = v
		}
	}
	return c
}

// Normalize coerces every recognized value to its canonical type and drops unknown keys.
func (flds Fields) Normalize() Fields {
	n := make(Fields, len(flds))
	for k, v := range flds {
		info, ok := fieldIndex[k]
		if !ok {
			continue
		}
		if info.list {
			n[k] = ToList(v)
		} else {
			n[k] = ToText(v)
		}
	}
	return n
}

// DecodeFields converts raw JSON values, as returned by the API, into Fields.
// This is where the string/array ambiguity of list fields is resolved. Unknown keys are dropped.
func DecodeFields(raw map[string]json.RawMessage) (Fields, error) {
	flds := make(Fields, len(raw))
	for key, data := range raw {
		info, ok := fieldIndex[key]
		if !ok {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, errors.Wrapf(err, "decoding %q", key)
		}
		if info.list {
			flds[key] = ToList(v)
		} else {
			flds[key] = ToText(v)
		}
	}
	return flds, nil
}

// ToText converts a decoded value into its text form. nil is the empty string.
func ToText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case List:
		return val.String()
	case []string:
		return NewList(val...).String()
	case []interface{}:
		return ToList(val).String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
