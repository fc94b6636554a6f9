package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/creatorsforacause/dom/mutation"
)

func testBatch() mutation.Batch {
	return mutation.Batch{
		ID:     "b1",
		PageID: "sub_1",
		Seq:    3,
		Records: []mutation.Record{
			{Op: mutation.OpAttr, XPath: "/html/body/span", Name: "data-unix-timestamp", Value: "0"},
		},
		Timestamp: 42,
	}
}

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	if err := s.Send(context.Background(), testBatch()); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(context.Background(), testBatch()); err != nil {
		t.Fatal(err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var env struct {
		Type string         `json:"type"`
		Data mutation.Batch `json:"data"`
	}
	if err := json.Unmarshal(lines[0], &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "batch" {
		t.Errorf("type = %q, want batch", env.Type)
	}
	if diff := cmp.Diff(testBatch(), env.Data); diff != "" {
		t.Errorf("decoded batch mismatch (-want +got):\n%s", diff)
	}
}

func TestRouter_FanOutAndFirstError(t *testing.T) {
	boom := errors.New("boom")
	var seen []string
	ok := NewCallback(func(_ context.Context, b mutation.Batch) error {
		seen = append(seen, "ok:"+b.ID)
		return nil
	})
	bad := NewCallback(func(_ context.Context, b mutation.Batch) error {
		seen = append(seen, "bad:"+b.ID)
		return boom
	})

	r := NewRouter(nil, bad, ok)
	err := r.Send(context.Background(), testBatch())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if diff := cmp.Diff([]string{"bad:b1", "ok:b1"}, seen); diff != "" {
		t.Errorf("delivery mismatch (-want +got):\n%s", diff)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestCallback_Nil(t *testing.T) {
	if err := NewCallback(nil).Send(context.Background(), testBatch()); err != nil {
		t.Errorf("nil callback: %v", err)
	}
}
