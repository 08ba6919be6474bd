package mfcc

import (
	"math"
	"testing"

	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

func testConfig() Config {
	return Config{
		SampleRate: 16000,
		FrameSize:  512,
		HopSize:    256,
		NumCoeffs:  13,
		NumFilters: 26,
		Window:     types.WindowHann,
	}
}

func TestNewProcessorRejectsHopLargerThanFrame(t *testing.T) {
	cfg := testConfig()
	cfg.HopSize = cfg.FrameSize + 1
	if _, err := NewProcessor(cfg); err == nil {
		t.Fatal("expected error when hop size exceeds frame size")
	}
}

func TestNewProcessorRejectsCoeffsExceedingFilters(t *testing.T) {
	cfg := testConfig()
	cfg.NumCoeffs = cfg.NumFilters + 1
	if _, err := NewProcessor(cfg); err == nil {
		t.Fatal("expected error when NumCoeffs exceeds NumFilters")
	}
}

func TestPushSamplesEmitsOneRowPerHopOnceFilled(t *testing.T) {
	p, err := NewProcessor(testConfig())
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	samples := make([]float64, 2048)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 220 * float64(i) / 16000)
	}

	var rows [][]float64
	rows, err = p.PushSamples(rows, samples)
	if err != nil {
		t.Fatalf("PushSamples: %v", err)
	}
	want := (len(samples)-p.cfg.FrameSize)/p.cfg.HopSize + 1
	if len(rows) != want {
		t.Fatalf("expected %d emitted MFCC rows, got %d", want, len(rows))
	}
	for _, row := range rows {
		if len(row) != p.NumCoeffs() {
			t.Fatalf("expected row of length %d, got %d", p.NumCoeffs(), len(row))
		}
	}
}

func TestResetClearsRingState(t *testing.T) {
	p, _ := NewProcessor(testConfig())
	samples := make([]float64, 1024)
	p.PushSamples(nil, samples)
	p.Reset()
	if p.ringFilled != 0 || p.ringPos != 0 || p.hopCounter != 0 {
		t.Fatal("expected ring state cleared after Reset")
	}
}
