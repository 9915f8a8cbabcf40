package cpu

import (
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"hackvm/pkg/grid"
)

const (
	ScreenWidth  = 512
	ScreenHeight = 256
	wordsPerRow  = ScreenWidth / 16
)

// PixelAt reports whether the screen pixel at (x, y) is set. Bit 0 of each
// screen word is its leftmost pixel.
func (c *CPU) PixelAt(x, y int) bool {
	word := c.RAM[ScreenBase+grid.GetGridIndex(x/16, y, wordsPerRow)]
	return word&(1<<(x%16)) != 0
}

// GetFramebufferRGBA decodes the screen memory map into a 512×256 RGBA8888
// byte slice. Set pixels are black on a white background.
func (c *CPU) GetFramebufferRGBA() []byte {
	pixels := make([]byte, ScreenWidth*ScreenHeight*4)
	for i := 0; i < ScreenWidth*ScreenHeight; i++ {
		x, y := grid.GetGridCoords(i, ScreenWidth)
		var v byte = 0xFF
		if c.PixelAt(x, y) {
			v = 0x00
		}
		pixels[i*4+0] = v
		pixels[i*4+1] = v
		pixels[i*4+2] = v
		pixels[i*4+3] = 0xFF
	}
	return pixels
}

// GetFramebufferImage returns the screen as an *image.RGBA.
func (c *CPU) GetFramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    c.GetFramebufferRGBA(),
		Stride: ScreenWidth * 4,
		Rect:   image.Rect(0, 0, ScreenWidth, ScreenHeight),
	}
}

// ScaledFramebuffer enlarges the screen by an integer factor without
// smoothing.
func (c *CPU) ScaledFramebuffer(scale int) *image.RGBA {
	src := c.GetFramebufferImage()
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, ScreenWidth*scale, ScreenHeight*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SaveScreenshot encodes the screen, scaled by scale, as a PNG file.
func (c *CPU) SaveScreenshot(filename string, scale int) error {
	img := c.ScaledFramebuffer(scale)
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
