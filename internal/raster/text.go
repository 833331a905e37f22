package raster

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error
)

// face returns a Go Regular face of the given pixel size. Faces are not safe
// for concurrent use, so each canvas keeps its own.
func (c *Canvas) face(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	if f, ok := c.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	if c.faces == nil {
		c.faces = make(map[float64]font.Face)
	}
	c.faces[size] = f
	return f, nil
}

// Text draws s horizontally centred on at, with its baseline at at.Y.
// size is in CSS pixels.
func (c *Canvas) Text(s string, at geo.Pixel, size float64, col color.Color) error {
	if s == "" {
		return nil
	}
	f, err := c.face(size * c.Scale)
	if err != nil {
		return err
	}
	p := at.Scale(c.Scale)
	width := font.MeasureString(f, s)
	d := &font.Drawer{
		Dst:  c.Img,
		Src:  image.NewUniform(col),
		Face: f,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(p.X*64) - width/2,
			Y: fixed.Int26_6(p.Y * 64),
		},
	}
	d.DrawString(s)
	return nil
}
