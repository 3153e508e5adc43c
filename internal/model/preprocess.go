package model

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode parses any registered image encoding.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Preprocess converts img into a batch-of-one float tensor: alpha is dropped,
// the raster is stretched to size×size and every channel is scaled to [0,1].
func Preprocess(img image.Image, size int, layout Layout) []float32 {
	rgb := toRGB(img)
	resized := resize.Resize(uint(size), uint(size), rgb, resize.Bicubic)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	data := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rv := float32(r>>8) / 255.0
			gv := float32(g>>8) / 255.0
			bv := float32(b>>8) / 255.0

			pixel := y*width + x
			if layout == LayoutNCHW {
				data[pixel] = rv
				data[plane+pixel] = gv
				data[2*plane+pixel] = bv
				continue
			}
			data[3*pixel] = rv
			data[3*pixel+1] = gv
			data[3*pixel+2] = bv
		}
	}
	return data
}

// toRGB copies img into an opaque RGBA raster. Colour channels keep their
// straight (non-premultiplied) values, so transparent pixels are not darkened.
func toRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	if gray, ok := img.(*image.Gray); ok {
		draw.Draw(out, out.Bounds(), gray, bounds.Min, draw.Src)
		return out
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}
