package meter

import (
	"github.com/halvorlund/hanreader/pkg/hdlc"
	"github.com/halvorlund/hanreader/pkg/moded"
)

// Kind identifies which variant a Message wraps.
type Kind int

// Message variants.
const (
	KindHDLCFrame Kind = iota
	KindP1Readout
	KindDLMSBare
)

// Message is a framed payload regardless of transport profile: either
// an HDLC frame carrying a DLMS/COSEM APDU, a P1 ASCII readout, or a
// bare DLMS APDU (for meters that deliver APDUs without HDLC framing).
type Message struct {
	Kind   Kind
	Frame  *hdlc.Frame
	Readout *moded.Readout
	Raw    []byte // set for KindDLMSBare
}

// NewHDLCMessage wraps an assembled HDLC frame.
func NewHDLCMessage(f *hdlc.Frame) Message {
	return Message{Kind: KindHDLCFrame, Frame: f}
}

// NewP1Message wraps a completed P1 readout.
func NewP1Message(r *moded.Readout) Message {
	return Message{Kind: KindP1Readout, Readout: r}
}

// NewDLMSMessage wraps a bare DLMS APDU.
func NewDLMSMessage(raw []byte) Message {
	return Message{Kind: KindDLMSBare, Raw: raw}
}

// IsValid reports the validity of the wrapped frame or readout. A
// bare DLMS message has no validity signal of its own and is always
// reported valid; decoding failure is what actually rejects it.
func (m Message) IsValid() bool {
	switch m.Kind {
	case KindHDLCFrame:
		return m.Frame.IsFCSGood() && m.Frame.IsExpectedLength()
	case KindP1Readout:
		return m.Readout.IsValid()
	default:
		return true
	}
}

// Payload returns the bytes a COSEM decoder should be given: the HDLC
// information field, the P1 data block, or the raw bytes directly.
func (m Message) Payload() []byte {
	switch m.Kind {
	case KindHDLCFrame:
		info, _ := m.Frame.Information()
		return info
	case KindP1Readout:
		return m.Readout.Payload()
	default:
		return m.Raw
	}
}

// AsBytes returns the complete raw bytes of the wrapped value.
func (m Message) AsBytes() []byte {
	switch m.Kind {
	case KindHDLCFrame:
		return m.Frame.Data()
	case KindP1Readout:
		return m.Readout.AsBytes()
	default:
		return m.Raw
	}
}
