// Package dtw implements dynamic time warping alignment between two
// MFCC sequences (C4 in the spec): a full banded alignment and a
// subsequence alignment for locating a short query inside a longer
// reference.
//
// Grounded on other_examples/398c822f_CWBudde-algo-piano's
// distance.go (lag estimation, alignment, normalized distance) and
// generalized from single-channel envelopes to per-frame MFCC vectors.
package dtw

import (
	"math"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
)

// DefaultBandRadius is the default Sakoe-Chiba band half-width in
// frames, per spec §4.3.
const DefaultBandRadius = 50

// Result carries the alignment cost and the path length used to
// normalize it.
type Result struct {
	// Cost is the cumulative path cost at the optimal endpoint.
	Cost float64
	// PathLen is the number of steps on the optimal path, used to
	// normalize Cost into a per-frame average distance.
	PathLen int
}

// NormalizedCost returns Cost/PathLen, or 0 if PathLen is 0.
func (r Result) NormalizedCost() float64 {
	if r.PathLen == 0 {
		return 0
	}
	return r.Cost / float64(r.PathLen)
}

const inf = math.MaxFloat64 / 2

// Align runs full DTW between a (reference) and b (candidate), both
// []float64 frames of equal dimension, restricted to a Sakoe-Chiba
// band of the given radius around the diagonal. radius <= 0 disables
// banding (full matrix).
func Align(a, b [][]float64, radius int) (Result, error) {
	return align(a, b, radius, false)
}

// AlignSubsequence runs subsequence DTW: a (the query) is matched
// against the best-aligned contiguous span of b (the longer
// reference), rather than requiring the match to start at b's first
// frame or consume all of it. a is fully traversed end to end; b's
// start and end columns are both free, the standard subsequence-DTW
// relaxation. radius is not applied in this mode, so every span of b
// is considered.
func AlignSubsequence(a, b [][]float64, radius int) (Result, error) {
	return align(a, b, radius, true)
}

func align(a, b [][]float64, radius int, subsequence bool) (Result, error) {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return Result{}, enginerr.New("dtw.Align", enginerr.EmptyInput)
	}
	if len(a[0]) != len(b[0]) {
		return Result{}, enginerr.New("dtw.Align", enginerr.DimensionMismatch)
	}

	if radius <= 0 {
		radius = n + m // effectively unbanded
	}

	// cost[i][j] is cumulative cost reaching (i,j), 1-indexed with a
	// zero-th row/column of sentinels; steps tracks step counts
	// along the same table so NormalizedCost is well defined.
	cost := make([][]float64, n+1)
	steps := make([][]int, n+1)
	for i := range cost {
		cost[i] = make([]float64, m+1)
		steps[i] = make([]int, m+1)
		for j := range cost[i] {
			cost[i][j] = inf
		}
	}
	cost[0][0] = 0

	for i := 1; i <= n; i++ {
		lo, hi := 1, m
		if !subsequence && radius < n+m {
			lo = max(1, i-radius)
			hi = min(m, i+radius)
		}
		for j := lo; j <= hi; j++ {
			d := frameDist(a[i-1], b[j-1])

			// Subsequence DTW: starting a fresh match at any reference
			// frame costs nothing extra, so row 1 has no "came from
			// (0,0) through diagonal only" constraint beyond itself.
			diag, up, left := cost[i-1][j-1], cost[i-1][j], cost[i][j-1]
			if subsequence && i == 1 {
				diag = 0
			}

			best := diag
			bestSteps := steps[i-1][j-1]
			if up < best {
				best, bestSteps = up, steps[i-1][j]
			}
			if left < best {
				best, bestSteps = left, steps[i][j-1]
			}
			cost[i][j] = best + d
			steps[i][j] = bestSteps + 1
		}
	}

	if !subsequence {
		return Result{Cost: cost[n][m], PathLen: steps[n][m]}, nil
	}

	// Subsequence DTW: the optimal endpoint is the minimum over the
	// last row (best place in b for the query to have ended).
	bestCost, bestSteps := inf, 0
	for j := 1; j <= m; j++ {
		if cost[n][j] < bestCost {
			bestCost, bestSteps = cost[n][j], steps[n][j]
		}
	}
	return Result{Cost: bestCost, PathLen: bestSteps}, nil
}

func frameDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
