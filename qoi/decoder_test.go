package qoi_test

import (
	"bytes"
	"image"
	"io"
	"testing"
	"testing/iotest"

	"github.com/bodgit/quiteok/qoi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stream builds a complete QOI byte stream from a header, opcode bytes and
// the standard trailer.
func stream(t *testing.T, header qoi.Header, ops ...byte) []byte {
	t.Helper()

	b, err := header.MarshalBinary()
	require.NoError(t, err)

	b = append(b, ops...)
	return append(b, 0, 0, 0, 0, 0, 0, 0, 1)
}

func decode(t *testing.T, b []byte) *image.NRGBA {
	t.Helper()

	m, err := qoi.Decode(bytes.NewReader(b))
	require.NoError(t, err)

	return m.(*image.NRGBA)
}

func TestDecodeSingleRGBA(t *testing.T) {
	b := stream(t, qoi.Header{Width: 1, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
		0xff, 10, 20, 30, 255)

	m := decode(t, b)
	assert.Equal(t, image.Rect(0, 0, 1, 1), m.Bounds())
	assert.Equal(t, []byte{10, 20, 30, 255}, m.Pix)
}

func TestDecodeRGBRun(t *testing.T) {
	// RGB pixel followed by a run of 2; all three share the seeded alpha
	b := stream(t, qoi.Header{Width: 1, Height: 3, Channels: qoi.RGB, Colorspace: qoi.SRGB},
		0xfe, 100, 100, 100,
		0b11000001)

	m := decode(t, b)
	assert.Equal(t, []byte{
		100, 100, 100, 255,
		100, 100, 100, 255,
		100, 100, 100, 255,
	}, m.Pix)
}

func TestDecodeDiffWraps(t *testing.T) {
	t.Run("below zero", func(t *testing.T) {
		// DIFF of (-2, 0, 0) against the seeded (0, 0, 0, 255) previous
		// pixel
		b := stream(t, qoi.Header{Width: 1, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
			0b01_00_10_10)

		m := decode(t, b)
		assert.Equal(t, []byte{254, 0, 0, 255}, m.Pix)
	})

	t.Run("above 255", func(t *testing.T) {
		b := stream(t, qoi.Header{Width: 2, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
			0xff, 255, 0, 0, 255,
			0b01_11_10_10) // dR = 1

		m := decode(t, b)
		assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 0, 255}, m.Pix)
	})
}

func TestDecodeLuma(t *testing.T) {
	t.Run("negative deltas wrap", func(t *testing.T) {
		// dG = -32, dR-dG = -8, dB-dG = -8 against (0, 0, 0, 255)
		b := stream(t, qoi.Header{Width: 1, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
			0b10_000000, 0x00)

		m := decode(t, b)
		assert.Equal(t, []byte{216, 224, 216, 255}, m.Pix)
	})

	t.Run("positive deltas", func(t *testing.T) {
		// dG = 31, dR-dG = 7, dB-dG = 7
		b := stream(t, qoi.Header{Width: 1, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
			0b10_111111, 0xff)

		m := decode(t, b)
		assert.Equal(t, []byte{38, 31, 38, 255}, m.Pix)
	})
}

func TestDecodeIndex(t *testing.T) {
	// (10, 20, 30, 255) hashes to cache slot 9; after an unrelated pixel,
	// INDEX 9 must recall it exactly
	b := stream(t, qoi.Header{Width: 1, Height: 3, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
		0xff, 10, 20, 30, 255,
		0xff, 50, 60, 70, 255,
		0b00_001001)

	m := decode(t, b)
	assert.Equal(t, []byte{
		10, 20, 30, 255,
		50, 60, 70, 255,
		10, 20, 30, 255,
	}, m.Pix)
}

func TestDecodeAlphaCarry(t *testing.T) {
	// Only RGBA may change alpha; RGB, DIFF and LUMA carry it unchanged
	b := stream(t, qoi.Header{Width: 4, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
		0xff, 1, 2, 3, 128,
		0xfe, 4, 5, 6,
		0b01_11_10_10, // dR = 1
		0b10_100001, 0x88) // dG = 1, dR = dB = 1

	m := decode(t, b)
	assert.Equal(t, []byte{
		1, 2, 3, 128,
		4, 5, 6, 128,
		5, 5, 6, 128,
		6, 6, 7, 128,
	}, m.Pix)
}

func TestDecodeRunMax(t *testing.T) {
	// 0xfd is the longest possible run, 62 pixels; 0xfe and 0xff are taken
	// by the RGB and RGBA tags
	b := stream(t, qoi.Header{Width: 63, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
		0xff, 7, 8, 9, 255,
		0xfd)

	m := decode(t, b)
	require.Len(t, m.Pix, 63*4)
	for i := 0; i < 63; i++ {
		assert.Equal(t, []byte{7, 8, 9, 255}, m.Pix[i*4:i*4+4])
	}
}

func TestDecodeZeroSize(t *testing.T) {
	b := stream(t, qoi.Header{Width: 0, Height: 0, Channels: qoi.RGBA, Colorspace: qoi.SRGB})

	m := decode(t, b)
	assert.Equal(t, image.Rect(0, 0, 0, 0), m.Bounds())
	assert.Empty(t, m.Pix)
}

// chunkReader yields at most size bytes per Read, exercising decoder
// suspension at arbitrary byte boundaries.
type chunkReader struct {
	b    []byte
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.b) {
		n = len(r.b)
	}
	if n > len(p) {
		n = len(p)
	}
	n = copy(p, r.b[:n])
	r.b = r.b[n:]
	return n, nil
}

func TestDecodeChunkBoundaries(t *testing.T) {
	// Mix of every multi-byte opcode so chunk boundaries land inside them
	b := stream(t, qoi.Header{Width: 2, Height: 2, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
		0xff, 10, 20, 30, 40,
		0b10_100101, 0x61, // LUMA dG = 5, dR = 3, dB = -2
		0b01_11_01_10, // DIFF (1, -1, 0)
		0b11000000) // RUN 1

	want := decode(t, b)

	for size := 1; size <= len(b); size++ {
		m, err := qoi.Decode(&chunkReader{b: b, size: size})
		require.NoError(t, err, "chunk size %d", size)
		assert.Equal(t, want.Pix, m.(*image.NRGBA).Pix, "chunk size %d", size)
	}

	m, err := qoi.Decode(iotest.OneByteReader(bytes.NewReader(b)))
	require.NoError(t, err)
	assert.Equal(t, want.Pix, m.(*image.NRGBA).Pix)
}

func TestDecodeTrailer(t *testing.T) {
	valid := stream(t, qoi.Header{Width: 1, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
		0xff, 10, 20, 30, 255)

	t.Run("corrupt byte", func(t *testing.T) {
		for i := 0; i < 8; i++ {
			b := append([]byte(nil), valid...)
			b[len(b)-8+i] ^= 0xaa

			_, err := qoi.Decode(bytes.NewReader(b))
			assert.ErrorIs(t, err, qoi.ErrTrailer, "trailer byte %d", i)
		}
	})

	t.Run("short", func(t *testing.T) {
		_, err := qoi.Decode(bytes.NewReader(valid[:len(valid)-1]))
		assert.ErrorIs(t, err, qoi.ErrShortStream)
	})

	t.Run("trailing garbage", func(t *testing.T) {
		_, err := qoi.Decode(bytes.NewReader(append(append([]byte(nil), valid...), 0x00)))
		assert.ErrorIs(t, err, qoi.ErrTrailer)
	})
}

func TestDecodeShortStream(t *testing.T) {
	valid := stream(t, qoi.Header{Width: 2, Height: 1, Channels: qoi.RGBA, Colorspace: qoi.SRGB},
		0xff, 10, 20, 30, 40,
		0b10_100101, 0x61)

	tables := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"mid header", 7},
		{"mid RGBA opcode", 17},
		{"mid LUMA opcode", 20},
		{"before trailer", 21},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := qoi.Decode(bytes.NewReader(valid[:table.n]))
			assert.ErrorIs(t, err, qoi.ErrShortStream)
		})
	}
}

func TestDecodeBadHeader(t *testing.T) {
	tables := []struct {
		name string
		b    []byte
		err  error
	}{
		{"bad magic", []byte{'f', 'i', 'o', 'q', 0, 0, 0, 1, 0, 0, 0, 1, 4, 0}, qoi.ErrMagic},
		{"bad channels", []byte{'q', 'o', 'i', 'f', 0, 0, 0, 1, 0, 0, 0, 1, 2, 0}, qoi.ErrChannels},
		{"bad colorspace", []byte{'q', 'o', 'i', 'f', 0, 0, 0, 1, 0, 0, 0, 1, 4, 9}, qoi.ErrColorspace},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := qoi.Decode(bytes.NewReader(table.b))
			assert.ErrorIs(t, err, table.err)
		})
	}
}

func TestDecodeConfig(t *testing.T) {
	b := stream(t, qoi.Header{Width: 320, Height: 200, Channels: qoi.RGB, Colorspace: qoi.Linear})

	config, err := qoi.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 320, config.Width)
	assert.Equal(t, 200, config.Height)
}

func TestDecodeHeader(t *testing.T) {
	want := qoi.Header{Width: 320, Height: 200, Channels: qoi.RGB, Colorspace: qoi.Linear}

	header, err := qoi.DecodeHeader(bytes.NewReader(stream(t, want)))
	require.NoError(t, err)
	assert.Equal(t, want, header)

	// the header alone is enough
	b, err := want.MarshalBinary()
	require.NoError(t, err)

	header, err = qoi.DecodeHeader(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, want, header)
}
