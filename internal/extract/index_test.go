package extract

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestIndex_ZeroValueIsUsable(t *testing.T) {
	var idx Index
	if !idx.IsEmpty() || idx.Total() != 0 || idx.URLs("jpg") != nil {
		t.Fatalf("expected empty zero value")
	}
	idx.Add("jpg", "https://x.test/a.jpg")
	if idx.Count("jpg") != 1 {
		t.Fatalf("expected add on zero value to work")
	}
}

func TestIndex_SortedFormatsAndCopies(t *testing.T) {
	idx := NewIndex()
	idx.Add("webp", "https://x.test/1.webp")
	idx.Add("avif", "https://x.test/2.avif")
	idx.Add("jpg", "https://x.test/3.jpg")
	idx.Add("webp", "https://x.test/4.webp")

	if got := idx.Formats(); !reflect.DeepEqual(got, []string{"webp", "avif", "jpg"}) {
		t.Fatalf("unexpected first-seen order %v", got)
	}
	if got := idx.SortedFormats(); !reflect.DeepEqual(got, []string{"avif", "jpg", "webp"}) {
		t.Fatalf("unexpected sorted order %v", got)
	}
	urls := idx.URLs("webp")
	urls[0] = "mutated"
	if idx.URLs("webp")[0] != "https://x.test/1.webp" {
		t.Fatalf("URLs must return a copy")
	}
	if idx.Total() != 4 || idx.Len() != 3 {
		t.Fatalf("unexpected totals: total=%d len=%d", idx.Total(), idx.Len())
	}
}

func TestIndex_JSON(t *testing.T) {
	idx := NewIndex()
	idx.Add("jpg", "https://x.test/a.jpg")
	idx.Add("jpg", "https://x.test/b.jpg")
	idx.Add("svg", "https://x.test/c.svg")

	b, err := json.Marshal(idx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"jpg":["https://x.test/a.jpg","https://x.test/b.jpg"],"svg":["https://x.test/c.svg"]}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
	var back Index
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Map(), idx.Map()) {
		t.Fatalf("decoded index differs: %v", back.Map())
	}
	empty, _ := json.Marshal(NewIndex())
	if string(empty) != "{}" {
		t.Fatalf("expected empty object, got %s", empty)
	}
}
