// Package decode implements auto-dispatch across the three vendor
// COSEM grammars and the P1 ASCII grammar, trying the most recently
// successful decoder first.
package decode

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/halvorlund/hanreader/pkg/cosem"
	"github.com/halvorlund/hanreader/pkg/cosem/aidon"
	"github.com/halvorlund/hanreader/pkg/cosem/kaifa"
	"github.com/halvorlund/hanreader/pkg/cosem/kamstrup"
	"github.com/halvorlund/hanreader/pkg/meter"
	"github.com/halvorlund/hanreader/pkg/moded"
	"github.com/halvorlund/hanreader/pkg/obis"
)

// ErrNoDecoder is returned when none of the vendor grammars accept a
// payload.
var ErrNoDecoder = errors.New("decode: no vendor decoder accepted payload")

type vendorFunc func(body []byte) (meter.Record, error)

type vendor struct {
	name   string
	decode vendorFunc
}

func wrapCosem(f func([]byte) (map[string]any, error)) vendorFunc {
	return func(body []byte) (meter.Record, error) {
		r, err := f(body)
		if err != nil {
			return nil, err
		}
		return meter.Record(r), nil
	}
}

// vendors is the fixed dispatch order {Aidon, Kaifa, Kamstrup, P1}.
var vendors = []vendor{
	{"Aidon", wrapCosem(aidon.Decode)},
	{"Kaifa", wrapCosem(kaifa.Decode)},
	{"Kamstrup", wrapCosem(kamstrup.Decode)},
	{"P1", decodeP1Payload},
}

// AutoDecoder dispatches across vendor grammars, remembering the
// index of the last successful decoder so the common case (repeated
// reads from the same meter) succeeds on the first attempt.
type AutoDecoder struct {
	mu       sync.Mutex
	previous int
}

// NewAutoDecoder constructs an AutoDecoder starting at vendor index 0.
func NewAutoDecoder() *AutoDecoder {
	return &AutoDecoder{}
}

// DecodePayload tries each vendor grammar against raw COSEM
// notification-body or P1 data-block bytes, starting from the last
// successful vendor, and returns the first record produced.
func (d *AutoDecoder) DecodePayload(body []byte) (meter.Record, error) {
	return d.dispatch(body)
}

// DecodeMessage tries each vendor grammar against a framed Message,
// using the HDLC information field or the P1 data block as
// appropriate. The HDLC information field still carries its LLC
// header and data-notification APDU (tag, long-invoke-id-and-priority,
// optional date-time) in front of the vendor-specific notification
// body, so both are stripped via cosem.ReadNotification before
// dispatch; the APDU-level date-time, when present, is bound into the
// record ahead of whatever the vendor body itself decodes. The same
// stickiness counter is shared with DecodePayload.
func (d *AutoDecoder) DecodeMessage(m meter.Message) (meter.Record, error) {
	payload := m.Payload()
	if m.Kind == meter.KindP1Readout {
		return d.dispatch(payload)
	}

	// Segmented-frame reassembly is out of scope: a frame whose header
	// declares segmentation carries an incomplete APDU, so its
	// information field is treated as unparseable, the same failure
	// path as any other malformed payload.
	if m.Kind == meter.KindHDLCFrame {
		if segmented, ok := m.Frame.Header().Segmentation(); ok && segmented {
			return nil, ErrNoDecoder
		}
	}

	apdu := payload
	if stripped, err := cosem.StripLLC(payload); err == nil {
		apdu = stripped
	}

	notification, err := cosem.ReadNotification(cosem.NewCursor(apdu))
	if err != nil {
		return d.dispatch(payload)
	}

	record, err := d.dispatch(notification.Body)
	if err != nil {
		return nil, err
	}
	if notification.DateTime != nil {
		record[obis.FieldMeterDateTime] = notification.DateTime.ToTime()
	}
	return record, nil
}

func (d *AutoDecoder) dispatch(body []byte) (meter.Record, error) {
	d.mu.Lock()
	start := d.previous
	d.mu.Unlock()

	var firstErr error
	for i := 0; i < len(vendors); i++ {
		idx := (start + i) % len(vendors)
		record, err := vendors[idx].decode(body)
		if err == nil {
			d.mu.Lock()
			d.previous = idx
			d.mu.Unlock()
			return record, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return nil, ErrNoDecoder
}

// decodeP1Payload treats body as the data block of a P1 readout:
// newline-separated "address(value[*unit])..." data sets.
func decodeP1Payload(body []byte) (meter.Record, error) {
	sets := moded.ParseDataBlock(string(body))
	if len(sets) == 0 {
		return nil, errP1NoData
	}

	record := meter.Record{"meter_manufacturer": "P1"}
	for _, set := range sets {
		cde, ok := reducedCDE(set.Address)
		if !ok {
			continue
		}
		name, known := obis.FieldNameForCDE(cde)
		if !known || len(set.Values) == 0 {
			continue
		}
		assignP1Value(record, name, set.Values[0])
	}

	if len(record) <= 1 {
		return nil, errP1NoData
	}
	return record, nil
}

var errP1NoData = errors.New("decode: p1 data block yielded no known fields")

// reducedCDE extracts the "C.D.E" triple from a full P1 OBIS address
// of the form "A-B:C.D.E.F" (the media/channel prefix and the
// trailing billing-period group are not meaningful for lookup).
func reducedCDE(address string) (string, bool) {
	addr := address
	if idx := strings.IndexByte(addr, ':'); idx >= 0 {
		addr = addr[idx+1:]
	}
	parts := strings.Split(addr, ".")
	if len(parts) < 3 {
		return "", false
	}
	return strings.Join(parts[0:3], "."), true
}

func assignP1Value(record meter.Record, name string, v moded.DataSetValue) {
	unit := strings.ToLower(v.Unit)
	scale := 1.0
	switch unit {
	case "kwh", "kvarh", "kw", "kvar":
		scale = 1000
	}

	if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
		if scale != 1 {
			record[name] = f * scale
		} else if strings.Contains(v.Value, ".") {
			record[name] = f
		} else {
			record[name] = int64(f)
		}
		return
	}

	record[name] = v.Value
}
