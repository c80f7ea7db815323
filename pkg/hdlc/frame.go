package hdlc

import "github.com/halvorlund/hanreader/pkg/fcs"

// MaxFrameLength is the largest value the 11-bit frame length sub-field
// can carry.
const MaxFrameLength = 0x7FF

// Header is a lazily-resolved view over the start of a Frame's bytes.
// Every accessor returns ok=false until enough bytes have been appended
// for that field to exist.
type Header struct {
	frame *Frame
}

// FrameFormat returns the raw 16-bit frame format field (format type,
// segmentation bit and 11-bit length packed together).
func (h Header) FrameFormat() (uint16, bool) {
	if len(h.frame.data) < 2 {
		return 0, false
	}
	return uint16(h.frame.data[0])<<8 | uint16(h.frame.data[1]), true
}

// FrameFormatType returns the 4-bit format type sub-field.
func (h Header) FrameFormatType() (int, bool) {
	ff, ok := h.FrameFormat()
	if !ok {
		return 0, false
	}
	return int(ff>>12) & 0b1111, true
}

// Segmentation returns the segmentation bit. The meters this pipeline
// targets always emit single-segment frames; a frame with this bit set
// is still assembled and emitted by the reader so the caller can
// observe it, but pkg/decode rejects it as unparseable rather than
// attempting to reassemble it.
func (h Header) Segmentation() (bool, bool) {
	ff, ok := h.FrameFormat()
	if !ok {
		return false, false
	}
	return (ff>>11)&0x1 == 0x1, true
}

// FrameLength returns the 11-bit declared frame length (octet count
// excluding the opening and closing flag bytes).
func (h Header) FrameLength() (int, bool) {
	ff, ok := h.FrameFormat()
	if !ok {
		return 0, false
	}
	return int(ff & 0b11111111111), true
}

// DestinationAddress returns the variable-length destination address,
// terminated by an octet whose low bit is set.
func (h Header) DestinationAddress() ([]byte, bool) {
	if len(h.frame.data) < 2 {
		return nil, false
	}
	return h.address(2)
}

// SourceAddress returns the variable-length source address, which
// immediately follows the destination address.
func (h Header) SourceAddress() ([]byte, bool) {
	dst, ok := h.DestinationAddress()
	if !ok {
		return nil, false
	}
	return h.address(2 + len(dst))
}

func (h Header) address(pos int) ([]byte, bool) {
	if len(h.frame.data) <= pos {
		return nil, false
	}
	var addr []byte
	for i := pos; ; i++ {
		if i >= len(h.frame.data) {
			return nil, false
		}
		b := h.frame.data[i]
		addr = append(addr, b)
		if b&0x01 == 0x01 {
			return addr, true
		}
	}
}

func (h Header) controlPosition() (int, bool) {
	dst, ok := h.DestinationAddress()
	if !ok {
		return 0, false
	}
	src, ok := h.SourceAddress()
	if !ok {
		return 0, false
	}
	return 2 + len(dst) + len(src), true
}

// Control returns the HDLC control byte.
func (h Header) Control() (byte, bool) {
	pos, ok := h.controlPosition()
	if !ok || len(h.frame.data) <= pos {
		return 0, false
	}
	return h.frame.data[pos], true
}

// HeaderCheckSequence returns the two-byte FCS computed over the
// format, addresses and control fields.
func (h Header) HeaderCheckSequence() (uint16, bool) {
	pos, ok := h.controlPosition()
	if !ok || len(h.frame.data) <= pos+2 {
		return 0, false
	}
	return uint16(h.frame.data[pos+1])<<8 | uint16(h.frame.data[pos+2]), true
}

// InformationPosition returns the byte offset where the information
// field begins, once the control field position is known.
func (h Header) InformationPosition() (int, bool) {
	pos, ok := h.controlPosition()
	if !ok {
		return 0, false
	}
	return pos + 3, true
}

// Frame is an HDLC frame being assembled, or complete, one byte at a
// time. is_fcs_good is only meaningful once the frame is emitted by the
// reader; a partial frame's running FCS is not yet conclusive.
type Frame struct {
	data []byte
	ffc  fcs.Running
}

func newFrame() *Frame {
	return &Frame{ffc: fcs.NewRunning()}
}

// Len returns the number of bytes appended so far.
func (f *Frame) Len() int { return len(f.data) }

func (f *Frame) append(b byte) {
	f.data = append(f.data, b)
	f.ffc.Update(b)
}

// Data returns the frame's content bytes (unescaped, if the reader uses
// octet stuffing), excluding the opening and closing flag octets.
func (f *Frame) Data() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// Header returns a view over the frame's header fields.
func (f *Frame) Header() Header {
	return Header{frame: f}
}

// IsFCSGood reports the frame check sequence's current pass/fail state.
// It can turn true at the end of the header (header FCS) and again at
// the end of the full frame (frame FCS); callers normally only inspect
// it once a frame is emitted.
func (f *Frame) IsFCSGood() bool {
	return f.ffc.IsGood()
}

// IsExpectedLength reports whether the bytes read so far match the
// header's declared frame length.
func (f *Frame) IsExpectedLength() bool {
	length, ok := f.Header().FrameLength()
	return ok && length == len(f.data)
}

// FrameCheckSequence returns the trailing two-byte FCS once the
// information field position is known and enough bytes have arrived.
func (f *Frame) FrameCheckSequence() (uint16, bool) {
	infoPos, ok := f.Header().InformationPosition()
	if !ok || len(f.data) < infoPos {
		return 0, false
	}
	n := len(f.data)
	return uint16(f.data[n-2])<<8 | uint16(f.data[n-1]), true
}

// Information returns the frame's payload once it is available.
func (f *Frame) Information() ([]byte, bool) {
	infoPos, ok := f.Header().InformationPosition()
	if !ok || len(f.data) <= infoPos+2 {
		return nil, false
	}
	return f.data[infoPos : len(f.data)-2], true
}
