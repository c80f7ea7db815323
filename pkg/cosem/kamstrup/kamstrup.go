// Package kamstrup decodes the Kamstrup notification-body grammar: a
// structure wrapping a greedy, OBIS-tagged sequence of elements with
// null-data padding between them.
package kamstrup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/halvorlund/hanreader/pkg/cosem"
	"github.com/halvorlund/hanreader/pkg/obis"
)

// ErrMalformed is returned when the notification body does not match
// the Kamstrup structure-of-greedy-elements shape.
var ErrMalformed = errors.New("kamstrup: malformed notification body")

// element is one decoded list item. obis is nil only for the leading
// list-version-identifier, which carries no OBIS tag.
type element struct {
	obis  *obis.Code
	text  string
	time  *time.Time
	raw   int64
	isRaw bool
}

// ctMeterPrefix identifies a current-transformer meter by the text of
// its meter-type field.
const ctMeterPrefix = "685"

// ctMeterTypeCDE is the reduced OBIS code under which Kamstrup sends
// its meter-type string.
const ctMeterTypeCDE = "96.1.1"

// powerTotalFields scale ×10 regardless of meter class.
var powerTotalFields = map[string]bool{
	obis.FieldActiveEnergyImportTotal:     true,
	obis.FieldActiveEnergyExportTotal:     true,
	obis.FieldReactiveEnergyImportTotal:   true,
	obis.FieldReactiveEnergyExportTotal:   true,
}

var currentFields = map[string]bool{
	obis.FieldCurrentL1: true,
	obis.FieldCurrentL2: true,
	obis.FieldCurrentL3: true,
}

// Decode parses a Kamstrup notification body and returns a canonical
// record.
func Decode(body []byte) (map[string]any, error) {
	c := cosem.NewCursor(body)

	if err := c.ExpectTag(cosem.TagStructure); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := c.Byte(); err != nil { // declared length is advisory; the loop is greedy
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var elements []element
	first := true
	for c.Remaining() > 0 {
		// Null-data padding between elements.
		for c.Remaining() > 0 {
			peek, err := c.PeekByte()
			if err != nil {
				break
			}
			if cosem.Tag(peek) != cosem.TagNull {
				break
			}
			if _, err := c.Byte(); err != nil {
				return nil, err
			}
		}
		if c.Remaining() == 0 {
			break
		}

		el, err := decodeElement(c, first)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		first = false
		elements = append(elements, el)
	}

	return normalize(elements)
}

func decodeElement(c *cosem.Cursor, isFirst bool) (element, error) {
	peek, err := c.PeekByte()
	if err != nil {
		return element{}, err
	}

	var el element
	if cosem.Tag(peek) == cosem.TagOctetString && !isFirst {
		obisCode, err := cosem.ReadObisValue(c)
		if err != nil {
			return element{}, err
		}
		code := obis.Code(obisCode)
		el.obis = &code
	}

	valueTag, err := c.PeekByte()
	if err != nil {
		return element{}, err
	}

	if cosem.Tag(valueTag) == cosem.TagOctetString {
		if _, err := c.Byte(); err != nil {
			return element{}, err
		}
		length, err := c.Byte()
		if err != nil {
			return element{}, err
		}
		if length == 12 {
			dt, err := cosem.ReadDateTime(c)
			if err != nil {
				return element{}, err
			}
			t := dt.ToTime()
			el.time = &t
		} else {
			text, err := c.Bytes(int(length))
			if err != nil {
				return element{}, err
			}
			el.text = string(text)
		}
		return el, nil
	}

	val, err := cosem.ReadValue(c)
	if err != nil {
		return element{}, err
	}
	raw, ok := val.AsInt64()
	if !ok {
		return element{}, fmt.Errorf("unexpected value tag %v", val.Tag)
	}
	el.raw = raw
	el.isRaw = true
	return el, nil
}

func normalize(elements []element) (map[string]any, error) {
	record := map[string]any{"meter_manufacturer": "Kamstrup"}

	// First pass: resolve names and stash raw numeric values so the
	// CT-meter test can see meter_type before scaling is applied.
	type resolved struct {
		name string
		el   element
	}
	var named []resolved
	isCT := false

	for _, el := range elements {
		if el.obis != nil && el.obis.ReducedString() == ctMeterTypeCDE && strings.HasPrefix(el.text, ctMeterPrefix) {
			isCT = true
		}
		var name string
		if el.obis == nil {
			name = obis.FieldListVersionID
		} else {
			n, ok := obis.FieldName(*el.obis)
			if !ok {
				continue
			}
			name = n
		}
		named = append(named, resolved{name: name, el: el})

		switch {
		case el.text != "":
			record[name] = el.text
		case el.time != nil:
			record[name] = *el.time
		}
	}

	if meterType, ok := record[obis.FieldMeterType].(string); ok && strings.HasPrefix(meterType, ctMeterPrefix) {
		isCT = true
	}

	for _, r := range named {
		if !r.el.isRaw {
			continue
		}
		record[r.name] = scaleValue(r.name, r.el.raw, isCT)
	}

	return record, nil
}

func scaleValue(name string, raw int64, isCT bool) any {
	switch {
	case powerTotalFields[name]:
		return float64(raw) * 10
	case currentFields[name]:
		if isCT {
			return float64(raw) / 1000
		}
		return float64(raw) / 100
	default:
		return raw
	}
}
