/*
Package qoi implements a streaming decoder for the QOI ("Quite OK Image")
lossless image format.

A QOI stream is a 14 byte header followed by a sequence of opcodes, each
decoding to one or more RGBA pixels, and a fixed 8 byte trailer. The header
is the 4 byte magic "qoif", the image width and height as big-endian 32-bit
unsigned integers, a channels byte (3 or 4) and a colorspace byte (0 for
sRGB, 1 for all-linear).

Opcodes reference a rolling 64 entry cache of previously seen colors and the
most recently decoded pixel, so decoding is strictly sequential; the decoder
here consumes its input one byte at a time and carries all state in a
per-session structure, so input may arrive in arbitrarily sized chunks.
*/
package qoi

import "errors"

const (
	opIndex = 0x00 // 00xxxxxx
	opDiff  = 0x40 // 01xxxxxx
	opLuma  = 0x80 // 10xxxxxx
	opRun   = 0xc0 // 11xxxxxx
	opRGB   = 0xfe // 11111110
	opRGBA  = 0xff // 11111111

	opMask = 0xc0 // 11000000
)

const (
	magic      = "qoif"
	headerLen  = 14
	trailerLen = 8
)

// trailer is the fixed end-of-stream marker.
var trailer = [trailerLen]byte{0, 0, 0, 0, 0, 0, 0, 1}

var (
	// ErrMagic means the stream does not start with the "qoif" magic.
	ErrMagic = errors.New("qoi: invalid magic")

	// ErrChannels means the header channels byte is not 3 or 4.
	ErrChannels = errors.New("qoi: invalid channel count")

	// ErrColorspace means the header colorspace byte is not 0 or 1.
	ErrColorspace = errors.New("qoi: invalid colorspace")

	// ErrTrailer means the end-of-stream marker is malformed or the
	// stream continues past it.
	ErrTrailer = errors.New("qoi: invalid stream trailer")

	// ErrShortStream means the stream ended before the header, pixel
	// data or trailer was complete.
	ErrShortStream = errors.New("qoi: unexpected end of stream")
)

// A pixel is one decoded color, stored as R, G, B, A bytes.
type pixel [4]byte

// slot returns the color cache position for p. Both encoder and decoder
// must agree on this for the format to round-trip.
func (p pixel) slot() int {
	return int(p[0]*3+p[1]*5+p[2]*7+p[3]*11) % 64
}

// Channels is the channels byte of a QOI header. It is purely descriptive;
// every stream decodes to RGBA output.
type Channels uint8

const (
	RGB  Channels = 3
	RGBA Channels = 4
)

func (c Channels) String() string {
	switch c {
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	}
	return "unknown"
}

// Colorspace is the colorspace byte of a QOI header. It does not affect
// decoding and is passed through as declared.
type Colorspace uint8

const (
	SRGB   Colorspace = 0
	Linear Colorspace = 1
)

func (c Colorspace) String() string {
	switch c {
	case SRGB:
		return "sRGB with linear alpha"
	case Linear:
		return "all channels linear"
	}
	return "unknown"
}
