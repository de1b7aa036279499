package steps

import "math"

const DefaultClusterThreshold = 0.85

// ClusterResult lists each input's cluster id plus per-cluster centroid and
// size. Cluster ids run 0..k-1 in creation order.
type ClusterResult struct {
	Assignments []int
	Centroids   [][]float32
	Sizes       []int
}

// Cluster assigns vectors in input order to the most similar existing
// centroid when cosine similarity reaches threshold, otherwise opens a new
// cluster. Centroids are running means. Zero vectors always open a new
// cluster and zero centroids never match.
func Cluster(vectors [][]float32, threshold float64) ClusterResult {
	res := ClusterResult{
		Assignments: make([]int, len(vectors)),
		Centroids:   [][]float32{},
		Sizes:       []int{},
	}
	for i, v := range vectors {
		best, bestSim := -1, math.Inf(-1)
		if norm(v) > 0 {
			for c, centroid := range res.Centroids {
				sim := CosineSimilarity(v, centroid)
				if sim > bestSim {
					best, bestSim = c, sim
				}
			}
		}
		if best >= 0 && bestSim >= threshold {
			n := res.Sizes[best] + 1
			centroid := res.Centroids[best]
			for j := range centroid {
				centroid[j] = float32((float64(centroid[j])*float64(n-1) + float64(v[j])) / float64(n))
			}
			res.Sizes[best] = n
			res.Assignments[i] = best
			continue
		}
		res.Assignments[i] = len(res.Centroids)
		res.Centroids = append(res.Centroids, append([]float32(nil), v...))
		res.Sizes = append(res.Sizes, 1)
	}
	return res
}

// CosineSimilarity is 0 when either side has zero norm or lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}
