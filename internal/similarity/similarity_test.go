package similarity

import "testing"

func frames(vals ...float64) [][]float64 {
	out := make([][]float64, len(vals))
	for i, v := range vals {
		out[i] = []float64{v, v * 0.5}
	}
	return out
}

func TestComputeComponentsSelfSimilarityIsHigh(t *testing.T) {
	master := frames(1, 2, 3, 4, 5, 4, 3, 2, 1)
	c, err := ComputeComponents(master, master, dtwRadius)
	if err != nil {
		t.Fatalf("ComputeComponents: %v", err)
	}
	score := Score(c, DefaultWeights())
	if score < 0.85 {
		t.Fatalf("expected self-similarity >= 0.85, got %v", score)
	}
}

func TestComputeComponentsCrossCallSeparation(t *testing.T) {
	master := frames(1, 2, 3, 4, 5, 4, 3, 2, 1)
	other := frames(50, 40, 30, 20, 10, 20, 30, 40, 50)

	selfC, _ := ComputeComponents(master, master, dtwRadius)
	otherC, _ := ComputeComponents(master, other, dtwRadius)

	selfScore := Score(selfC, DefaultWeights())
	otherScore := Score(otherC, DefaultWeights())

	if selfScore-otherScore < 0.15 {
		t.Fatalf("expected self vs other separation >= 0.15, got self=%v other=%v", selfScore, otherScore)
	}
}

func TestComputeComponentsEmptyInput(t *testing.T) {
	if _, err := ComputeComponents(nil, frames(1), dtwRadius); err == nil {
		t.Fatal("expected error for empty master")
	}
}

func TestStateFinalizeFreezesScore(t *testing.T) {
	st := NewState()
	c := Components{Offset: 0.1, DTW: 0.1, Mean: 0.1, Subsequence: 0.1}
	st.UpdateChunk(c)
	st.UpdateChunk(c)
	frozen, err := st.Finalize(c)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	// Further updates must not move the frozen score.
	st.UpdateChunk(Components{Offset: 100, DTW: 100, Mean: 100, Subsequence: 100})
	if st.Current() != frozen {
		t.Fatalf("expected frozen score %v to survive post-finalize updates, got %v", frozen, st.Current())
	}
}

func TestStateFinalizeTwiceErrors(t *testing.T) {
	st := NewState()
	c := Components{Offset: 0.1, DTW: 0.1, Mean: 0.1, Subsequence: 0.1}
	if _, err := st.Finalize(c); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if _, err := st.Finalize(c); err == nil {
		t.Fatal("expected AlreadyFinalized on second Finalize")
	}
}

func TestReliabilityGatesOnFrameCount(t *testing.T) {
	if reliable, _ := Reliability(10, 100); reliable {
		t.Fatal("expected insufficient-data gate with few live frames")
	}
	if reliable, _ := Reliability(50, 100); !reliable {
		t.Fatal("expected reliable once past MinFramesRequired")
	}
}

func TestMinFramesRequiredFloorsAt25(t *testing.T) {
	if got := MinFramesRequired(10); got != 25 {
		t.Fatalf("expected floor of 25, got %d", got)
	}
	if got := MinFramesRequired(400); got != 100 {
		t.Fatalf("expected 0.25*400=100, got %d", got)
	}
}

const dtwRadius = 50
