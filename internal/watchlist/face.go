package watchlist

import (
	"image"
	"math"
)

// FaceRegion is a detected face candidate: a bounding box in pixel
// coordinates plus the detector's confidence.
type FaceRegion struct {
	Rect       image.Rectangle
	Confidence float64
}

const faceCells = 6

// DetectFace proposes at most one face region per frame. It is a cheap
// contrast-based detector: faces against typical scene backgrounds
// concentrate local luminance variance, so the densest-variance cell
// neighborhood wins. Accuracy is traded for determinism and speed; the
// confidence floor downstream gates weak proposals.
func DetectFace(img image.Image) (FaceRegion, bool) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w < faceCells || h < faceCells {
		return FaceRegion{}, false
	}

	cellW := w / faceCells
	cellH := h / faceCells

	bestVar := 0.0
	var totalVar float64
	bestX, bestY := 0, 0

	for gy := 0; gy < faceCells; gy++ {
		for gx := 0; gx < faceCells; gx++ {
			v := cellVariance(img, bounds.Min.X+gx*cellW, bounds.Min.Y+gy*cellH, cellW, cellH)
			totalVar += v
			if v > bestVar {
				bestVar = v
				bestX, bestY = gx, gy
			}
		}
	}

	if totalVar == 0 {
		return FaceRegion{}, false
	}

	// Confidence is how strongly the winning cell dominates the frame's
	// variance. A flat frame scores near the uniform share 1/cells².
	share := bestVar / totalVar
	uniform := 1.0 / float64(faceCells*faceCells)
	conf := (share - uniform) / (1 - uniform)
	if conf < 0 {
		conf = 0
	}
	conf = math.Min(1, conf*4)

	rect := image.Rect(
		bounds.Min.X+bestX*cellW,
		bounds.Min.Y+bestY*cellH,
		bounds.Min.X+(bestX+1)*cellW,
		bounds.Min.Y+(bestY+1)*cellH,
	)

	return FaceRegion{Rect: rect, Confidence: conf}, true
}

func cellVariance(img image.Image, x0, y0, w, h int) float64 {
	var sum, sumSq float64
	n := 0
	// Sample a sparse grid; full-resolution variance buys nothing here.
	stepX := w / 8
	stepY := h / 8
	if stepX < 1 {
		stepX = 1
	}
	if stepY < 1 {
		stepY = 1
	}
	for y := y0; y < y0+h; y += stepY {
		for x := x0; x < x0+w; x += stepX {
			l := luminance(img, x, y)
			sum += l
			sumSq += l * l
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	v := sumSq/float64(n) - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

// Crop extracts the face region as a standalone image.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			out.Set(x, y, img.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return out
}
