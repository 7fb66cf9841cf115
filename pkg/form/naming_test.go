package form

import "testing"

func TestFieldNameRoundTrip(t *testing.T) {
	cases := []FieldRef{
		{Inline: "choice", Index: 0, Field: "text"},
		{Inline: "choice", Index: 12, Field: "poll_id"},
		{Inline: "line_item", Index: 3, Field: "unit_price"},
	}
	for _, ref := range cases {
		name := FieldName(ref.Inline, ref.Index, ref.Field)
		got, ok := ParseFieldName(name)
		if !ok {
			t.Fatalf("ParseFieldName(%q) failed", name)
		}
		if got != ref {
			t.Fatalf("ParseFieldName(%q) = %+v, want %+v", name, got, ref)
		}
	}
}

func TestParseFieldNameRejects(t *testing.T) {
	for _, key := range []string{"", "question", "choice_count", "choice_01_text", "_0_text", "choice_0_", "choice_-1_text"} {
		if ref, ok := ParseFieldName(key); ok {
			t.Fatalf("ParseFieldName(%q) = %+v, expected failure", key, ref)
		}
	}
}

func TestControlKeys(t *testing.T) {
	if got := CountKey("choice"); got != "choice_count" {
		t.Fatalf("CountKey = %q", got)
	}
	if got := AddKey("choice"); got != "add_choice" {
		t.Fatalf("AddKey = %q", got)
	}
	if got := DeleteKey("choice", 4); got != "delete_choice_4" {
		t.Fatalf("DeleteKey = %q", got)
	}
}

func TestExtractPKIsAllOrNothing(t *testing.T) {
	keys := []string{"a", "b"}
	cases := []struct {
		name string
		data map[string][]string
		ok   bool
	}{
		{name: "complete", data: map[string][]string{"x_0_a": {"1"}, "x_0_b": {"2"}}, ok: true},
		{name: "missing part", data: map[string][]string{"x_0_a": {"1"}}},
		{name: "empty part", data: map[string][]string{"x_0_a": {"1"}, "x_0_b": {""}}},
		{name: "not an integer", data: map[string][]string{"x_0_a": {"1"}, "x_0_b": {"two"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pk, ok := extractPK(tc.data, "x", 0, keys)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && len(pk) != len(keys) {
				t.Fatalf("partial key %v", pk)
			}
			if !ok && pk != nil {
				t.Fatalf("expected nil key, got %v", pk)
			}
		})
	}
}
