// Package aidon decodes the Aidon notification-body grammar: an array
// of fixed-shape structures, each a single OBIS-tagged measurement.
package aidon

import (
	"errors"
	"fmt"
	"time"

	"github.com/halvorlund/hanreader/pkg/cosem"
	"github.com/halvorlund/hanreader/pkg/obis"
)

// ErrMalformed is returned when the notification body does not match
// the Aidon array-of-structures-of-3 shape.
var ErrMalformed = errors.New("aidon: malformed notification body")

// Element is one decoded list item: an OBIS code plus either a
// string, a timestamp, or a scaled numeric value.
type Element struct {
	Obis     obis.Code
	Text     string
	Time     *time.Time
	Value    float64
	IsInt    bool // Value is an exact integer, carried for Record typing
	HasValue bool
}

// DecodeBody parses an Aidon notification body: array (tag 1) of
// structures (tag 2), each of length 3: OBIS octet-string, content
// type tag, content.
func DecodeBody(body []byte) ([]Element, error) {
	c := cosem.NewCursor(body)

	if err := c.ExpectTag(cosem.TagArray); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	n, err := c.Byte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	elements := make([]Element, 0, n)
	for i := 0; i < int(n); i++ {
		el, err := decodeElement(c)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformed, i, err)
		}
		elements = append(elements, el)
	}
	return elements, nil
}

func decodeElement(c *cosem.Cursor) (Element, error) {
	if err := c.ExpectTag(cosem.TagStructure); err != nil {
		return Element{}, err
	}
	length, err := c.Byte()
	if err != nil {
		return Element{}, err
	}
	if length != 3 {
		return Element{}, fmt.Errorf("structure has length %d, want 3", length)
	}

	obisCode, err := cosem.ReadObisValue(c)
	if err != nil {
		return Element{}, err
	}

	contentTag, err := c.PeekByte()
	if err != nil {
		return Element{}, err
	}

	el := Element{Obis: obis.Code(obisCode)}

	switch cosem.Tag(contentTag) {
	case cosem.TagVisibleString:
		v, err := cosem.ReadValue(c)
		if err != nil {
			return Element{}, err
		}
		el.Text = v.Str

	case cosem.TagOctetString:
		// Either a plain octet-string or a 12-byte date-time; Aidon
		// only uses octet-string content for date-time fields.
		if _, err := c.Byte(); err != nil {
			return Element{}, err
		}
		length, err := c.Byte()
		if err != nil {
			return Element{}, err
		}
		if length != 12 {
			return Element{}, fmt.Errorf("octet-string content has length %d, want 12-byte date-time", length)
		}
		dt, err := cosem.ReadDateTime(c)
		if err != nil {
			return Element{}, err
		}
		t := dt.ToTime()
		el.Time = &t

	default:
		raw, err := cosem.ReadValue(c)
		if err != nil {
			return Element{}, err
		}
		rawInt, ok := raw.AsInt64()
		if !ok {
			return Element{}, fmt.Errorf("unexpected scalar content tag %v", raw.Tag)
		}
		su, err := cosem.ReadScalerUnit(c)
		if err != nil {
			return Element{}, err
		}
		scaled := su.Apply(rawInt)
		el.HasValue = true
		el.Value = scaled
		el.IsInt = su.Exponent >= 0
	}

	return el, nil
}

// Normalize converts decoded elements into a canonical record,
// keyed by the OBIS C.D.E field-name table.
func Normalize(elements []Element) (map[string]any, error) {
	record := map[string]any{
		"meter_manufacturer": "Aidon",
	}

	for _, el := range elements {
		name, ok := obis.FieldName(el.Obis)
		if !ok {
			continue
		}
		switch {
		case el.Text != "":
			record[name] = el.Text
		case el.Time != nil:
			record[name] = *el.Time
		case el.HasValue:
			if el.IsInt {
				record[name] = int64(el.Value)
			} else {
				record[name] = el.Value
			}
		}
	}

	return record, nil
}

// Decode parses and normalizes an Aidon notification body in one step.
func Decode(body []byte) (map[string]any, error) {
	elements, err := DecodeBody(body)
	if err != nil {
		return nil, err
	}
	return Normalize(elements)
}
