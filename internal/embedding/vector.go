package embedding

import (
	"math"
	"sort"
)

// normEpsilon is the norm below which a vector is left unnormalized to
// avoid division blow-up.
const normEpsilon = 1e-8

// Zero returns a zero vector of the given dimension.
func Zero(dim int) []float32 {
	return make([]float32, dim)
}

// Dot returns the dot product of two vectors. Vectors of different lengths
// are compared over the shorter prefix, which yields zero similarity for a
// zero-length side rather than panicking on malformed rows.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the L2 norm of a vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-norm copy of v. Vectors with norm below 1e-8 are
// returned as an unmodified copy.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	norm := Norm(v)
	if norm < normEpsilon {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// TopSimilar ranks the given post vectors by dot-product similarity against
// the query vector and returns the post IDs of the top n, most similar
// first. Ties keep their input order.
func TopSimilar(query []float32, posts []PostVector, n int) []string {
	type scored struct {
		id  string
		sim float64
	}
	ranked := make([]scored, 0, len(posts))
	for _, p := range posts {
		ranked = append(ranked, scored{id: p.PostID, sim: Dot(query, p.Vector)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].sim > ranked[j].sim
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	ids := make([]string, 0, n)
	for _, s := range ranked[:n] {
		ids = append(ids, s.id)
	}
	return ids
}
