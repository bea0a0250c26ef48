package watchlist

import (
	"image"
	"math"
)

// EmbedDim is the fixed embedding length: an 8x8 luminance grid with a
// mean and a contrast value per cell.
const EmbedDim = 128

const gridSize = 8

// Embed maps a face crop to a fixed-length vector. Fully deterministic:
// the same pixels always produce the same vector, so gallery scores are
// reproducible across cycles and restarts.
func Embed(img image.Image) []float64 {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	vec := make([]float64, EmbedDim)
	if w == 0 || h == 0 {
		return vec
	}

	cellW := w / gridSize
	cellH := h / gridSize
	if cellW == 0 {
		cellW = 1
	}
	if cellH == 0 {
		cellH = 1
	}

	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			x0 := bounds.Min.X + gx*cellW
			y0 := bounds.Min.Y + gy*cellH
			x1 := x0 + cellW
			y1 := y0 + cellH
			if x1 > bounds.Max.X {
				x1 = bounds.Max.X
			}
			if y1 > bounds.Max.Y {
				y1 = bounds.Max.Y
			}

			var sum, sumSq float64
			n := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					l := luminance(img, x, y)
					sum += l
					sumSq += l * l
					n++
				}
			}
			if n == 0 {
				continue
			}
			mean := sum / float64(n)
			variance := sumSq/float64(n) - mean*mean
			if variance < 0 {
				variance = 0
			}

			idx := (gy*gridSize + gx) * 2
			vec[idx] = mean
			vec[idx+1] = math.Sqrt(variance)
		}
	}

	return normalize(vec)
}

func luminance(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	// ITU-R BT.601 weights over 16-bit channel values.
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
}

func normalize(vec []float64) []float64 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// CosineSimilarity between two vectors; zero when lengths differ or a
// vector is all zeros.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
