package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const boxThickness = 3

var (
	colorMatched = color.RGBA{R: 0x4e, G: 0xcc, B: 0xa3, A: 0xff}
	colorUnknown = color.RGBA{R: 0xe9, G: 0x45, B: 0x60, A: 0xff}
)

// AnnotateFace draws the pixel bbox [x1, y1, x2, y2] and a label onto the image and
// returns it as JPEG. Matched faces are outlined in green, unknown ones in red.
func AnnotateFace(data []byte, bbox []float64, label string, matched bool) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	c := colorUnknown
	if matched {
		c = colorMatched
	}

	if len(bbox) == 4 {
		box := image.Rect(int(bbox[0]), int(bbox[1]), int(bbox[2]), int(bbox[3])).Add(bounds.Min).Intersect(bounds)
		drawOutline(dst, box, c)
		if label != "" {
			drawLabel(dst, box, label, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func drawOutline(dst draw.Image, box image.Rectangle, c color.Color) {
	if box.Empty() {
		return
	}
	fill := image.NewUniform(c)
	t := boxThickness
	edges := []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+t),
		image.Rect(box.Min.X, box.Max.Y-t, box.Max.X, box.Max.Y),
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+t, box.Max.Y),
		image.Rect(box.Max.X-t, box.Min.Y, box.Max.X, box.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(box), fill, image.Point{}, draw.Src)
	}
}

// drawLabel writes text on a filled strip above the box, or inside it when the box touches the top edge.
func drawLabel(dst draw.Image, box image.Rectangle, label string, c color.Color) {
	face := basicfont.Face7x13
	height := face.Metrics().Height.Ceil() + 4
	width := font.MeasureString(face, label).Ceil() + 6

	top := box.Min.Y - height
	if top < dst.Bounds().Min.Y {
		top = box.Min.Y
	}
	strip := image.Rect(box.Min.X, top, box.Min.X+width, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, strip, image.NewUniform(c), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(strip.Min.X+3, strip.Min.Y+face.Metrics().Ascent.Ceil()+2),
	}
	d.DrawString(label)
}
