package extract

import (
	"encoding/json"
	"sort"
)

// Index groups resolved image URLs by format key. Lists keep document order
// and retain duplicates. The zero value is an empty, usable Index.
type Index struct {
	order    []string
	byFormat map[string][]string
}

// NewIndex returns an empty Index.
func NewIndex() Index {
	return Index{byFormat: make(map[string][]string)}
}

// Add appends url under format, creating the list on first use.
func (x *Index) Add(format, url string) {
	if x.byFormat == nil {
		x.byFormat = make(map[string][]string)
	}
	list, ok := x.byFormat[format]
	if !ok {
		x.order = append(x.order, format)
	}
	x.byFormat[format] = append(list, url)
}

// Formats returns the format keys in order of first appearance.
func (x Index) Formats() []string {
	return append([]string(nil), x.order...)
}

// SortedFormats returns the format keys in lexical order, for display.
func (x Index) SortedFormats() []string {
	out := x.Formats()
	sort.Strings(out)
	return out
}

// URLs returns a copy of the URLs recorded for format, or nil.
func (x Index) URLs(format string) []string {
	list := x.byFormat[format]
	if len(list) == 0 {
		return nil
	}
	return append([]string(nil), list...)
}

// Count returns the number of URLs recorded for format.
func (x Index) Count(format string) int {
	return len(x.byFormat[format])
}

// Len returns the number of distinct format keys.
func (x Index) Len() int {
	return len(x.order)
}

// Total returns the number of URLs across all formats.
func (x Index) Total() int {
	n := 0
	for _, list := range x.byFormat {
		n += len(list)
	}
	return n
}

// IsEmpty reports whether no image was classified.
func (x Index) IsEmpty() bool {
	return len(x.order) == 0
}

// Map returns a copy of the index as a plain map.
func (x Index) Map() map[string][]string {
	out := make(map[string][]string, len(x.byFormat))
	for k, v := range x.byFormat {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// MarshalJSON encodes the index as an object of format to URL list.
func (x Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.Map())
}

// UnmarshalJSON decodes an object of format to URL list. Formats are ordered
// lexically since JSON objects carry no order.
func (x *Index) UnmarshalJSON(b []byte) error {
	var m map[string][]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	*x = NewIndex()
	for _, k := range keys {
		for _, u := range m[k] {
			x.Add(k, u)
		}
	}
	return nil
}
