package render

import (
	"image"
)

// colorMatrix is a 3x4 RGB transform in 0-255 space, row major, with the
// fourth column as bias. Alpha is never touched.
type colorMatrix [12]float64

func brightnessMatrix(f float64) colorMatrix {
	return colorMatrix{
		f, 0, 0, 0,
		0, f, 0, 0,
		0, 0, f, 0,
	}
}

func contrastMatrix(f float64) colorMatrix {
	bias := 127.5 * (1 - f)
	return colorMatrix{
		f, 0, 0, bias,
		0, f, 0, bias,
		0, 0, f, bias,
	}
}

// saturateMatrix uses the luminance weights of the CSS saturate() function.
func saturateMatrix(s float64) colorMatrix {
	return colorMatrix{
		0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s, 0,
		0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s, 0,
		0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s, 0,
	}
}

// filterChain returns the matrices for f in application order, skipping identities.
func filterChain(f Filters) []colorMatrix {
	var chain []colorMatrix
	if f.Brightness != 100 {
		chain = append(chain, brightnessMatrix(f.Brightness/100))
	}
	if f.Contrast != 100 {
		chain = append(chain, contrastMatrix(f.Contrast/100))
	}
	if f.Saturation != 100 {
		chain = append(chain, saturateMatrix(f.Saturation/100))
	}
	return chain
}

// applyFilters runs the chain over img in place. Each step clamps before the
// next one reads, like chained filter functions.
func applyFilters(img *image.NRGBA, f Filters) {
	chain := filterChain(f)
	if len(chain) == 0 {
		return
	}

	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i+3] == 0 {
			continue
		}
		r, g, b := float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
		for _, m := range chain {
			r, g, b =
				clampf(m[0]*r+m[1]*g+m[2]*b+m[3]),
				clampf(m[4]*r+m[5]*g+m[6]*b+m[7]),
				clampf(m[8]*r+m[9]*g+m[10]*b+m[11])
		}
		img.Pix[i] = uint8(r + 0.5)
		img.Pix[i+1] = uint8(g + 0.5)
		img.Pix[i+2] = uint8(b + 0.5)
	}
}

func clampf(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
