package retrieval

import "math"

// MMRRerank implements Maximal Marginal Relevance re-ranking (spec §4.2,
// GLOSSARY: "a re-ranking that trades relevance against diversity").
//
// No library in the retrieved pack (teacher or the rest of _examples)
// implements cosine similarity or MMR re-ranking — grepping the pack for
// cosine/embedding/mmr turns up no vector-math dependency anywhere. This
// is therefore a standard-library implementation (see DESIGN.md): a
// dot-product/norm computation over []float64 is squarely within math,
// and no ecosystem library in the corpus covers it.
func MMRRerank(query []float64, chunks []Chunk, k int, lambda float64) []Chunk {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}

	relevance := make([]float64, len(chunks))
	for i, c := range chunks {
		relevance[i] = cosineSimilarity(query, c.Vector)
	}

	selected := make([]int, 0, k)
	remaining := make(map[int]bool, len(chunks))
	for i := range chunks {
		remaining[i] = true
	}

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i := range remaining {
			maxSimToSelected := 0.0
			for _, s := range selected {
				sim := cosineSimilarity(chunks[i].Vector, chunks[s].Vector)
				if sim > maxSimToSelected {
					maxSimToSelected = sim
				}
			}
			score := lambda*relevance[i] - (1-lambda)*maxSimToSelected
			if score > bestScore || (score == bestScore && (bestIdx == -1 || chunks[i].Order < chunks[bestIdx].Order)) {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		selected = append(selected, bestIdx)
		delete(remaining, bestIdx)
	}

	out := make([]Chunk, 0, len(selected))
	for _, idx := range selected {
		out = append(out, chunks[idx])
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
