// Package hdlc implements an incremental, resync-capable reader for
// IEC 62056-46 HDLC frames carrying DLMS/COSEM APDUs.
package hdlc

const (
	// flagSequence marks the beginning or end of a frame.
	flagSequence byte = 0x7E
	// controlEscape escapes a literal flag or escape octet in an
	// octet-stuffed transport.
	controlEscape byte = 0x7D
)

// Options configures an incremental Reader. Both fields are immutable
// for the lifetime of the reader.
type Options struct {
	// UseOctetStuffing enables 0x7D escaping for byte-asynchronous
	// transports that escape 0x7D/0x7E inside the frame body.
	UseOctetStuffing bool
	// UseAbortSequence treats a trailing 0x7D 0x7E as an abort,
	// silently discarding the partial frame.
	UseAbortSequence bool
}

// Reader assembles a byte stream into a sequence of Frames. It never
// loses bytes across Read calls and resynchronizes after garbage: once
// a chunk boundary splits a frame arbitrarily, feeding the chunks in
// order still yields exactly one frame per on-the-wire frame.
type Reader struct {
	opts Options

	buffer    []byte
	bufferPos int

	inFrame       bool
	frame         *Frame
	rawFrameData  []byte
	unescapeNext  bool
}

// NewReader constructs a Reader in hunt mode.
func NewReader(opts Options) *Reader {
	return &Reader{opts: opts}
}

// IsInHuntMode reports whether the reader is currently hunting for the
// start of a frame rather than assembling one. This includes the state
// after a frame is emitted: its closing flag is kept as the next
// frame's opening flag, and no frame bytes are held yet.
func (r *Reader) IsInHuntMode() bool {
	return !r.inFrame || r.frame.Len() == 0
}

// Read feeds the reader the next chunk of bytes (any length, including
// a single byte) and returns every Frame completed as a result,
// including frames with a bad FCS — validity is left for the caller to
// inspect via Frame.IsFCSGood.
func (r *Reader) Read(chunk []byte) []*Frame {
	var completed []*Frame

	r.buffer = append(r.buffer, chunk...)

	if !r.inFrame {
		r.trimBufferToFlagOrEnd()
	}

	for r.bufferPos < len(r.buffer) {
		frame, done := r.readNext()
		if done {
			completed = append(completed, frame)
			r.startFrame()
			r.trimBufferToCurrentPosition()
		}
	}

	return completed
}

func (r *Reader) readNext() (*Frame, bool) {
	current := r.buffer[r.bufferPos]
	r.bufferPos++

	if current == flagSequence {
		return r.handleFlagSequence()
	}

	if r.inFrame {
		r.appendToFrame(current)
		if r.frame.Len() > MaxFrameLength {
			r.gotoHuntMode()
		}
	}

	return nil, false
}

func (r *Reader) handleFlagSequence() (*Frame, bool) {
	switch {
	case !r.inFrame:
		// Found flag sequence in frame hunt mode.
		r.startFrame()

	case r.frame.Len() == 0:
		// Two flags is normal (end + start), one is allowed, and many
		// are possible as time-fill. Ignore.

	case !r.headerFCSAvailable():
		// Frames too short to have read a header FCS are silently
		// discarded, not counted as an FCS error.
		r.gotoHuntMode()

	case r.opts.UseAbortSequence && len(r.rawFrameData) > 1 && r.rawFrameData[len(r.rawFrameData)-1] == controlEscape:
		// A Control Escape immediately followed by a closing flag is an
		// abort sequence: silently discarded.
		r.gotoHuntMode()

	case r.opts.UseOctetStuffing:
		// A literal flag never appears in content under octet stuffing,
		// so any flag here is a genuine frame terminator.
		return r.frame, true

	case r.frame.IsExpectedLength():
		return r.frame, true

	default:
		// This 0x7E was a content byte of a badly formed, non-stuffed
		// frame: append it and keep reading.
		r.appendToFrame(flagSequence)
	}

	return nil, false
}

func (r *Reader) headerFCSAvailable() bool {
	_, ok := r.frame.Header().HeaderCheckSequence()
	return ok
}

func (r *Reader) appendToFrame(current byte) {
	r.rawFrameData = append(r.rawFrameData, current)

	if !r.opts.UseOctetStuffing {
		r.frame.append(current)
		return
	}

	if r.unescapeNext {
		r.unescapeNext = false
		r.frame.append(current ^ 0x20)
		return
	}

	if current == controlEscape {
		r.unescapeNext = true
		return
	}

	r.frame.append(current)
}

func (r *Reader) startFrame() {
	r.inFrame = true
	r.frame = newFrame()
	r.rawFrameData = r.rawFrameData[:0]
}

func (r *Reader) gotoHuntMode() {
	r.inFrame = false
	r.frame = nil
	r.trimBufferToFlagOrEnd()
}

func (r *Reader) trimBufferToCurrentPosition() {
	r.buffer = r.buffer[r.bufferPos:]
	r.bufferPos = 0
}

func (r *Reader) trimBufferToFlagOrEnd() {
	r.trimBufferToCurrentPosition()
	idx := indexByte(r.buffer, flagSequence)
	if idx == -1 {
		r.buffer = r.buffer[:0]
		return
	}
	if idx > 0 {
		r.buffer = r.buffer[idx:]
	}
	r.bufferPos = 0
}

func indexByte(data []byte, b byte) int {
	for i, c := range data {
		if c == b {
			return i
		}
	}
	return -1
}
