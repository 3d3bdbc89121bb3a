package qoi

import (
	"image"
	"image/color"
	"io"
)

func init() {
	image.RegisterFormat("qoi", magic, Decode, DecodeConfig)
}

type state int

const (
	stateHeader state = iota // header not yet complete
	stateOp                  // awaiting a new opcode tag
	stateRGB                 // inside an RGB opcode, 3 data bytes
	stateRGBA                // inside an RGBA opcode, 4 data bytes
	stateLuma                // inside a LUMA opcode, 1 more byte
	stateTrailer             // pixel buffer full, reading the trailer
	stateDone                // trailer verified
)

// decoder holds all state for one decode session: the current opcode and
// any partially received bytes of it, the previous pixel, the color cache
// and the output buffer. Sessions are independent of each other, so
// concurrent decodes need no coordination.
type decoder struct {
	state state

	head [headerLen]byte
	hdr  Header

	scratch [4]byte
	n       int

	prev  pixel
	cache [64]pixel

	pix []byte // decoded RGBA, raster order
	off int

	trail int
}

func newDecoder() *decoder {
	return &decoder{prev: pixel{0, 0, 0, 255}}
}

// step feeds one byte to the state machine. Chunking of the input is
// invisible here; the session suspends cleanly between any two bytes,
// including in the middle of a multi-byte opcode or the header.
func (d *decoder) step(b byte) error {
	switch d.state {
	case stateHeader:
		d.head[d.n] = b
		if d.n++; d.n < headerLen {
			return nil
		}
		if err := d.hdr.UnmarshalBinary(d.head[:]); err != nil {
			return err
		}
		d.pix = make([]byte, int(d.hdr.Width)*int(d.hdr.Height)*4)
		d.n = 0
		if len(d.pix) == 0 {
			d.state = stateTrailer
		} else {
			d.state = stateOp
		}

	case stateOp:
		// The full-byte RGB and RGBA tags shadow the two largest RUN
		// encodings, so they must be matched first.
		switch {
		case b == opRGB:
			d.state = stateRGB
		case b == opRGBA:
			d.state = stateRGBA
		default:
			switch b & opMask {
			case opIndex:
				d.emit(d.cache[b&^opMask])
			case opDiff:
				p := d.prev
				p[0] += (b>>4)&0x03 - 2
				p[1] += (b>>2)&0x03 - 2
				p[2] += b&0x03 - 2
				d.emit(p)
			case opLuma:
				d.scratch[0] = b
				d.state = stateLuma
			case opRun:
				for n := int(b&^opMask) + 1; n > 0 && d.state != stateTrailer; n-- {
					d.emit(d.prev)
				}
			}
		}

	case stateRGB:
		d.scratch[d.n] = b
		if d.n++; d.n == 3 {
			d.emit(pixel{d.scratch[0], d.scratch[1], d.scratch[2], d.prev[3]})
		}

	case stateRGBA:
		d.scratch[d.n] = b
		if d.n++; d.n == 4 {
			d.emit(pixel{d.scratch[0], d.scratch[1], d.scratch[2], d.scratch[3]})
		}

	case stateLuma:
		dg := d.scratch[0]&^opMask - 32
		p := d.prev
		p[0] += (b >> 4) - 8 + dg
		p[1] += dg
		p[2] += b&0x0f - 8 + dg
		d.emit(p)

	case stateTrailer:
		if b != trailer[d.trail] {
			return ErrTrailer
		}
		if d.trail++; d.trail == trailerLen {
			d.state = stateDone
		}

	case stateDone:
		return ErrTrailer
	}

	return nil
}

// emit appends one decoded pixel, stores it in the color cache and resets
// the state machine for the next opcode. The cache store is unconditional;
// a pixel fetched via INDEX is written straight back to its own slot.
func (d *decoder) emit(p pixel) {
	d.cache[p.slot()] = p
	d.prev = p
	copy(d.pix[d.off:], p[:])
	d.off += 4
	d.n = 0
	if d.off == len(d.pix) {
		d.state = stateTrailer
	} else {
		d.state = stateOp
	}
}

func (d *decoder) decode(r io.Reader, configOnly bool) error {
	var buf [4096]byte
	for {
		n, err := r.Read(buf[:])
		for _, b := range buf[:n] {
			if err := d.step(b); err != nil {
				return err
			}
			if configOnly && d.state != stateHeader {
				return nil
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	if d.state != stateDone {
		return ErrShortStream
	}

	return nil
}

// Decode reads a QOI image from r and returns it as an image.Image. The
// input may arrive in arbitrarily sized reads; decoding resumes at any
// byte boundary.
func Decode(r io.Reader) (image.Image, error) {
	d := newDecoder()
	if err := d.decode(r, false); err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    d.pix,
		Stride: int(d.hdr.Width) * 4,
		Rect:   image.Rect(0, 0, int(d.hdr.Width), int(d.hdr.Height)),
	}, nil
}

// DecodeConfig returns the color model and dimensions of a QOI image
// without decoding the pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

// DecodeHeader reads and validates just the 14 byte header from r.
func DecodeHeader(r io.Reader) (Header, error) {
	d := newDecoder()
	if err := d.decode(r, true); err != nil {
		return Header{}, err
	}
	return d.hdr, nil
}
