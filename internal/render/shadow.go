package render

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// dropShadow builds a surface-sized shadow layer from fg's alpha silhouette:
// shifted by the offset, tinted with the shadow colour, then Gaussian blurred.
// A blur radius r maps to sigma r/2, the CSS drop-shadow convention.
func dropShadow(fg *image.NRGBA, s Shadow) *image.NRGBA {
	bounds := fg.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dx := int(math.Round(s.OffsetX))
	dy := int(math.Round(s.OffsetY))

	layer := image.NewNRGBA(bounds)
	for y := 0; y < h; y++ {
		sy := y - dy
		for x := 0; x < w; x++ {
			i := layer.PixOffset(x, y)
			layer.Pix[i] = s.Color.R
			layer.Pix[i+1] = s.Color.G
			layer.Pix[i+2] = s.Color.B

			sx := x - dx
			if sx < 0 || sy < 0 || sx >= w || sy >= h {
				continue
			}
			a := uint32(fg.Pix[fg.PixOffset(sx, sy)+3])
			layer.Pix[i+3] = uint8((a*uint32(s.Color.A) + 127) / 255)
		}
	}

	if s.Blur <= 0 {
		return layer
	}
	return imaging.Blur(layer, s.Blur/2)
}

// feather softens the layer's edge by multiplying its alpha with a blurred copy
// of the alpha mask. Interior pixels far from an edge keep their alpha.
func feather(layer *image.NRGBA, radius float64) {
	if radius <= 0 {
		return
	}
	bounds := layer.Bounds()
	mask := image.NewGray(bounds)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			mask.Pix[mask.PixOffset(x, y)] = layer.Pix[layer.PixOffset(x, y)+3]
		}
	}

	soft := imaging.Blur(mask, radius/2)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			i := layer.PixOffset(x, y) + 3
			m := uint32(soft.Pix[soft.PixOffset(x, y)])
			layer.Pix[i] = uint8((uint32(layer.Pix[i])*m + 127) / 255)
		}
	}
}
