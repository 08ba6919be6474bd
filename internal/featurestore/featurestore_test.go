package featurestore

import (
	"bytes"
	"testing"
)

func sampleFeatures() Features {
	return Features{
		NumFrames: 3,
		NumCoeffs: 2,
		Data: [][]float64{
			{1, 2},
			{3, 4},
			{5, 6},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := sampleFeatures()
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.NumFrames != in.NumFrames || out.NumCoeffs != in.NumCoeffs {
		t.Fatalf("header mismatch: got %+v want %+v", out, in)
	}
	for i := range in.Data {
		for j := range in.Data[i] {
			if out.Data[i][j] != in.Data[i][j] {
				t.Fatalf("data mismatch at (%d,%d): got %v want %v", i, j, out.Data[i][j], in.Data[i][j])
			}
		}
	}
}

func TestDecodeMalformedHeader(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0, 0, 0})
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error decoding truncated header")
	}
}

func TestDecodeRejectsAbsurdFrameCount(t *testing.T) {
	var buf bytes.Buffer
	in := Features{NumFrames: 1 << 30, NumCoeffs: 1, Data: nil}
	_ = Encode(&buf, Features{NumFrames: in.NumFrames, NumCoeffs: in.NumCoeffs})
	if _, err := Decode(&buf); err == nil {
		t.Fatal("expected Malformed error for absurd frame count")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	loads := map[string]int{}
	loader := func(id string) (Features, error) {
		loads[id]++
		return Features{NumFrames: 1, NumCoeffs: 1, Data: [][]float64{{1}}}, nil
	}
	c := NewCache(2, loader)

	if _, err := c.Get("a"); err != nil {
		t.Fatalf("Get a: %v", err)
	}
	if _, err := c.Get("b"); err != nil {
		t.Fatalf("Get b: %v", err)
	}
	if _, err := c.Get("c"); err != nil { // evicts "a"
		t.Fatalf("Get c: %v", err)
	}
	if _, err := c.Get("a"); err != nil { // reload, evicts "b"
		t.Fatalf("Get a again: %v", err)
	}

	if loads["a"] != 2 {
		t.Fatalf("expected a to be reloaded once after eviction, got %d loads", loads["a"])
	}
	if c.Len() != 2 {
		t.Fatalf("expected cache len 2, got %d", c.Len())
	}
}

func TestCacheInvalidate(t *testing.T) {
	loads := 0
	loader := func(id string) (Features, error) {
		loads++
		return Features{NumFrames: 1, NumCoeffs: 1, Data: [][]float64{{1}}}, nil
	}
	c := NewCache(4, loader)
	c.Get("a")
	c.Invalidate("a")
	c.Get("a")
	if loads != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", loads)
	}
}
