package quiteok

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/bodgit/quiteok/qoi"
	"github.com/ericpauley/go-quantize/quantize"
)

// Info returns the header of the QOI file without decoding its pixel data.
func Info(file string) (qoi.Header, error) {
	f, err := os.Open(file)
	if err != nil {
		return qoi.Header{}, err
	}
	defer f.Close()

	return qoi.DecodeHeader(f)
}

// Convert decodes the QOI file in and writes it to out as a PNG. If colors
// is greater than zero the image is first quantized down to at most that
// many colors.
func Convert(in, out string, colors int) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := qoi.Decode(f)
	if err != nil {
		return err
	}

	if colors > 0 {
		b := m.Bounds()
		q := quantize.MedianCutQuantizer{}
		pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
		m = pm
	}

	w, err := os.Create(out)
	if err != nil {
		return err
	}
	defer w.Close()

	return png.Encode(w, m)
}

// Export writes the cataloged pixels for path to out as a PNG without
// re-decoding the original file.
func (l *Library) Export(path, out string) error {
	entry, pixels, err := l.db.FindByPath(path)
	if err != nil {
		return err
	}
	if entry == nil {
		return errors.New("not in catalog")
	}

	m := &image.NRGBA{
		Pix:    pixels,
		Stride: int(entry.Header.Width) * 4,
		Rect:   image.Rect(0, 0, int(entry.Header.Width), int(entry.Header.Height)),
	}

	w, err := os.Create(out)
	if err != nil {
		return err
	}
	defer w.Close()

	return png.Encode(w, m)
}
