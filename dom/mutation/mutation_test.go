package mutation

import (
	"encoding/json"
	"testing"

	"golang.org/x/net/html"
)

func TestBatchJSON_SkipsNodeReferences(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "span"}
	b := Batch{
		ID:     "01234567-89ab-cdef-0123-456789abcdef",
		PageID: "sub_1",
		Seq:    3,
		Records: []Record{
			{Op: OpAttr, XPath: "/html/body/span", Name: "data-unix-timestamp", Value: "0", Target: n},
			{Op: OpInsert, XPath: "/html/body/div", NodeType: 1, Tag: "div", Added: []*html.Node{n}},
		},
		Timestamp: 1708700000000,
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}

	var got Batch
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Seq != 3 || len(got.Records) != 2 {
		t.Fatalf("roundtrip: got seq=%d records=%d", got.Seq, len(got.Records))
	}
	if got.Records[0].Target != nil || got.Records[1].Added != nil {
		t.Error("node references must not survive serialisation")
	}
	if got.Records[0].Name != "data-unix-timestamp" {
		t.Errorf("Name: got %q", got.Records[0].Name)
	}
}

func TestOptionsWants(t *testing.T) {
	opts := Options{
		Attributes:      true,
		AttributeFilter: []string{"data-unix-timestamp"},
		ChildList:       true,
	}

	tests := []struct {
		op   Op
		name string
		want bool
	}{
		{OpAttr, "data-unix-timestamp", true},
		{OpAttrDel, "data-unix-timestamp", true},
		{OpAttr, "title", false},
		{OpInsert, "", true},
		{OpRemove, "", true},
	}
	for _, tt := range tests {
		if got := opts.Wants(tt.op, tt.name); got != tt.want {
			t.Errorf("Wants(%s, %q) = %v, want %v", tt.op, tt.name, got, tt.want)
		}
	}
}

func TestOptionsWants_NoFilter(t *testing.T) {
	opts := Options{Attributes: true}
	if !opts.Wants(OpAttr, "title") {
		t.Error("empty filter should accept every attribute")
	}
	if opts.Wants(OpInsert, "") {
		t.Error("childList not requested")
	}
}
