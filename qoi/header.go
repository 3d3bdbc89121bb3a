package qoi

import "encoding/binary"

// Header is the fixed 14 byte prefix of a QOI stream. It is immutable once
// parsed. It implements the encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler interfaces.
type Header struct {
	Width      uint32
	Height     uint32
	Channels   Channels
	Colorspace Colorspace
}

func (h Header) validate() error {
	switch h.Channels {
	case RGB, RGBA:
	default:
		return ErrChannels
	}
	switch h.Colorspace {
	case SRGB, Linear:
	default:
		return ErrColorspace
	}
	return nil
}

// MarshalBinary encodes the header into its 14 byte wire form.
func (h Header) MarshalBinary() ([]byte, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	b := make([]byte, headerLen)
	copy(b, magic)
	binary.BigEndian.PutUint32(b[4:], h.Width)
	binary.BigEndian.PutUint32(b[8:], h.Height)
	b[12] = byte(h.Channels)
	b[13] = byte(h.Colorspace)

	return b, nil
}

// UnmarshalBinary decodes and validates a 14 byte header.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < headerLen {
		return ErrShortStream
	}
	if string(b[:4]) != magic {
		return ErrMagic
	}

	h.Width = binary.BigEndian.Uint32(b[4:8])
	h.Height = binary.BigEndian.Uint32(b[8:12])
	h.Channels = Channels(b[12])
	h.Colorspace = Colorspace(b[13])

	return h.validate()
}
