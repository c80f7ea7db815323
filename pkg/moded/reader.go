package moded

// maxBufferSize bounds how much unparsed data the reader will hold
// before resynchronizing; a readout stuck without a line terminator
// past this size is abandoned.
const maxBufferSize = 8 * 1024

// Reader assembles a byte stream into complete P1 readouts, one line
// at a time.
type Reader struct {
	buffer    []byte
	bufferPos int

	huntMode bool
	rawData  []byte
}

// NewReader constructs a Reader in hunt mode.
func NewReader() *Reader {
	return &Reader{huntMode: true}
}

// IsInHuntMode reports whether the reader is hunting for the start of
// a readout rather than assembling one.
func (r *Reader) IsInHuntMode() bool {
	return r.huntMode
}

// Read feeds the reader the next chunk of bytes and returns every
// readout completed as a result, valid or not — validity is left for
// the caller to inspect via Readout.IsValid.
func (r *Reader) Read(chunk []byte) []*Readout {
	var completed []*Readout

	if len(r.buffer)-r.bufferPos > maxBufferSize {
		r.huntMode = true
		r.trimBufferToFlagOrEnd()
	}

	r.buffer = append(r.buffer, chunk...)

	if r.huntMode {
		r.trimBufferToFlagOrEnd()
	}

	for {
		line, ok := r.popLine()
		if !ok {
			return completed
		}

		if r.huntMode {
			if len(line) > 0 && line[0] == startCharacter && IsIdentLine(string(line)) {
				r.huntMode = false
				r.rawData = append(r.rawData[:0], line...)
			}
			continue
		}

		r.rawData = append(r.rawData, line...)
		if len(line) > 0 && line[0] == endCharacter {
			raw := make([]byte, len(r.rawData))
			copy(raw, r.rawData)
			if readout, err := NewReadout(raw); err == nil {
				completed = append(completed, readout)
			}
			r.rawData = r.rawData[:0]
			r.huntMode = true
		}
	}
}

func (r *Reader) popLine() ([]byte, bool) {
	if r.bufferPos >= len(r.buffer) {
		return nil, false
	}
	lfPos := indexByteFrom(r.buffer, lf, r.bufferPos)
	if lfPos < 0 {
		return nil, false
	}
	line := r.buffer[r.bufferPos : lfPos+1]
	r.bufferPos = lfPos + 1
	return line, true
}

func (r *Reader) trimBufferToFlagOrEnd() {
	r.buffer = r.buffer[r.bufferPos:]
	r.bufferPos = 0

	idx := indexByte(r.buffer, startCharacter)
	if idx == -1 {
		r.buffer = r.buffer[:0]
		return
	}
	if idx > 0 {
		r.buffer = r.buffer[idx:]
	}
}

func indexByteFrom(data []byte, b byte, from int) int {
	for i := from; i < len(data); i++ {
		if data[i] == b {
			return i
		}
	}
	return -1
}
