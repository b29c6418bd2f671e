package hmm

import (
	"math"
	"math/rand"
	"sort"
)

const kmeansMaxIter = 300

// kmeans clusters scalar observations into k groups and returns the centroids
// in ascending order, so state 0 starts as the lowest-mean regime.
func kmeans(obs []float64, k int, rng *rand.Rand) []float64 {
	centers := seedCenters(obs, k, rng)
	assign := make([]int, len(obs))
	sums := make([]float64, k)
	counts := make([]int, k)

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := iter == 0
		for t, x := range obs {
			if c := nearest(centers, x); c != assign[t] {
				assign[t] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		for j := range sums {
			sums[j], counts[j] = 0, 0
		}
		for t, x := range obs {
			sums[assign[t]] += x
			counts[assign[t]]++
		}
		for j := range centers {
			if counts[j] > 0 {
				centers[j] = sums[j] / float64(counts[j])
			}
		}
	}
	sort.Float64s(centers)
	return centers
}

// seedCenters picks k initial centers with the k-means++ rule.
func seedCenters(obs []float64, k int, rng *rand.Rand) []float64 {
	centers := make([]float64, 0, k)
	centers = append(centers, obs[rng.Intn(len(obs))])
	d2 := make([]float64, len(obs))
	for len(centers) < k {
		total := 0.0
		for t, x := range obs {
			d := x - centers[nearest(centers, x)]
			d2[t] = d * d
			total += d2[t]
		}
		if total == 0 {
			centers = append(centers, obs[rng.Intn(len(obs))])
			continue
		}
		u := rng.Float64() * total
		idx := len(obs) - 1
		for t, w := range d2 {
			u -= w
			if u < 0 {
				idx = t
				break
			}
		}
		centers = append(centers, obs[idx])
	}
	return centers
}

func nearest(centers []float64, x float64) int {
	best, arg := math.Inf(1), 0
	for j, c := range centers {
		if d := math.Abs(x - c); d < best {
			best, arg = d, j
		}
	}
	return arg
}
