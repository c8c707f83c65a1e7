package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestBatchProgressBuckets(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		bucketSize float64
		want       []bool
	}{
		{"every session crosses a bucket", 4, 25, []bool{true, true, true, true}},
		{"small steps share buckets", 20, 25, []bool{true, false, false, false, true}},
		{"default bucket size", 3, 0, []bool{true, true, true}},
		{"unknown total logs once", 0, 10, []bool{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewBatchProgress(nil, tt.total, tt.bucketSize)
			for i, want := range tt.want {
				if got := p.Done(false); got != want {
					t.Fatalf("Done #%d = %v, want %v", i+1, got, want)
				}
			}
		})
	}
}

func TestBatchProgressConcurrentCounts(t *testing.T) {
	var buf bytes.Buffer
	p := NewBatchProgress(slog.New(slog.NewTextHandler(&buf, nil)), 50, 50)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Done(i%10 == 0)
		}()
	}
	wg.Wait()

	done, failed := p.Counts()
	if done != 50 || failed != 5 {
		t.Fatalf("counts = %d/%d, want 50/5", done, failed)
	}
	if n := strings.Count(buf.String(), "batch progress"); n != 3 {
		t.Fatalf("expected 3 progress lines, got %d:\n%s", n, buf.String())
	}
}

func TestBatchProgressNil(t *testing.T) {
	var p *BatchProgress
	if p.Done(true) {
		t.Fatal("nil progress should never emit")
	}
	if done, failed := p.Counts(); done != 0 || failed != 0 {
		t.Fatal("nil progress should report zero counts")
	}
}
