package pixel

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SharpenMix is the weight of the convolved value in the output
const SharpenMix = 0.3

// SharpenKernel is the 3x3 edge-enhance kernel, row major
var SharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// rows per unit of work handed to a worker
const bandHeight = 64

// Sharpen applies SharpenKernel to every interior pixel of src.
func Sharpen(src *Buffer) (*Buffer, error) {
	return SharpenContext(context.Background(), src)
}

// SharpenContext is Sharpen with cancellation. Interior rows are processed in
// bands by a bounded worker pool; ctx is checked before each band.
//
// Border pixels and every alpha value are copied from src unchanged. RGB is
// blended as orig*(1-mix) + conv*mix, rounded half to even and clamped to [0,255].
func SharpenContext(ctx context.Context, src *Buffer) (*Buffer, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	dst := src.Clone()
	if src.Width < 3 || src.Height < 3 {
		return dst, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for top := 1; top < src.Height-1; top += bandHeight {
		bottom := min(top+bandHeight, src.Height-1)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sharpenRows(src, dst, top, bottom)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dst, nil
}

// sharpenRows writes rows [top, bottom) of dst. Only reads from src.
func sharpenRows(src, dst *Buffer, top, bottom int) {
	w := src.Width
	stride := w * 4
	for y := top; y < bottom; y++ {
		for x := 1; x < w-1; x++ {
			i := y*stride + x*4
			for c := 0; c < 3; c++ {
				var conv float64
				k := 0
				for ky := -1; ky <= 1; ky++ {
					row := i + ky*stride
					for kx := -1; kx <= 1; kx++ {
						if weight := SharpenKernel[k]; weight != 0 {
							conv += float64(src.Pix[row+kx*4+c]) * weight
						}
						k++
					}
				}
				orig := float64(src.Pix[i+c])
				dst.Pix[i+c] = clamp(orig*(1-SharpenMix) + conv*SharpenMix)
			}
		}
	}
}

func clamp(v float64) uint8 {
	v = math.RoundToEven(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
