// Package kaifa decodes the Kaifa notification-body grammar: a single
// structure that is either a list of (OBIS, value) pairs or a list of
// bare values whose field identity is recovered from a fixed schema
// keyed by item count.
package kaifa

import (
	"errors"
	"fmt"

	"github.com/halvorlund/hanreader/pkg/cosem"
	"github.com/halvorlund/hanreader/pkg/obis"
)

// ErrMalformed is returned when the notification body matches neither
// the OBIS-elements nor the value-elements shape.
var ErrMalformed = errors.New("kaifa: malformed notification body")

// fieldOrderLists are the five fixed value-elements schemas, keyed by
// position in this slice but selected by matching item count.
var fieldOrderLists = buildFieldOrderLists()

func buildFieldOrderLists() [][]string {
	threePhaseList3 := []string{
		obis.FieldListVersionID,
		obis.FieldMeterID,
		obis.FieldMeterType,
		obis.FieldActivePowerImport,
		obis.FieldActivePowerExport,
		obis.FieldReactivePowerImport,
		obis.FieldReactivePowerExport,
		obis.FieldCurrentL1,
		obis.FieldCurrentL2,
		obis.FieldCurrentL3,
		obis.FieldVoltageL1,
		obis.FieldVoltageL2,
		obis.FieldVoltageL3,
		obis.FieldMeterDateTime,
		obis.FieldActiveEnergyImportTotal,
		obis.FieldActiveEnergyExportTotal,
		obis.FieldReactiveEnergyImportTotal,
		obis.FieldReactiveEnergyExportTotal,
	}

	singlePhaseList3 := append(append([]string{}, threePhaseList3[:8]...), threePhaseList3[10:11]...)
	singlePhaseList3 = append(singlePhaseList3, threePhaseList3[13:]...)

	singlePhaseList2 := append([]string{}, singlePhaseList3[:len(singlePhaseList3)-5]...)
	threePhaseList2 := append([]string{}, threePhaseList3[:len(threePhaseList3)-5]...)

	return [][]string{
		{obis.FieldActivePowerImport},
		singlePhaseList2,
		threePhaseList2,
		singlePhaseList3,
		threePhaseList3,
	}
}

func fieldListForLength(n int) []string {
	for _, list := range fieldOrderLists {
		if len(list) == n {
			return list
		}
	}
	return nil
}

// fieldScaling applies to numeric values of both shapes: currents
// scale by 10^-3, voltages by 10^-1.
var fieldScaling = map[string]int{
	obis.FieldCurrentL1: -3,
	obis.FieldCurrentL2: -3,
	obis.FieldCurrentL3: -3,
	obis.FieldVoltageL1: -1,
	obis.FieldVoltageL2: -1,
	obis.FieldVoltageL3: -1,
}

func applyScale(value int64, exp int) float64 {
	v := float64(value)
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			v *= 10
		}
	} else {
		for i := 0; i < -exp; i++ {
			v /= 10
		}
	}
	return v
}

// Decode parses a Kaifa notification body and returns a canonical
// record, trying the OBIS-elements shape first and falling back to
// the value-elements shape.
func Decode(body []byte) (map[string]any, error) {
	if record, err := decodeObisElements(body); err == nil {
		return record, nil
	}
	return decodeValueElements(body)
}

// decodeObisElements handles a structure whose declared item count is
// 2n: n repetitions of (OBIS octet-string, value).
func decodeObisElements(body []byte) (map[string]any, error) {
	c := cosem.NewCursor(body)

	if err := c.ExpectTag(cosem.TagStructure); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	n, err := c.Byte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n == 0 || n%2 != 0 {
		return nil, fmt.Errorf("%w: item count %d is not 2n", ErrMalformed, n)
	}

	pairs := int(n) / 2
	record := map[string]any{"meter_manufacturer": "Kaifa"}

	for i := 0; i < pairs; i++ {
		obisCode, err := cosem.ReadObisValue(c)
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d: %v", ErrMalformed, i, err)
		}
		name, known := obis.FieldName(obis.Code(obisCode))

		tag, err := c.PeekByte()
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d: %v", ErrMalformed, i, err)
		}

		if cosem.Tag(tag) == cosem.TagOctetString {
			if _, err := c.Byte(); err != nil {
				return nil, err
			}
			length, err := c.Byte()
			if err != nil {
				return nil, err
			}
			if length == 12 {
				dt, err := cosem.ReadDateTime(c)
				if err != nil {
					return nil, err
				}
				t := dt.ToTime()
				if known {
					record[name] = t
				}
				continue
			}
			text, err := c.Bytes(int(length))
			if err != nil {
				return nil, err
			}
			if known {
				record[name] = string(text)
			}
			continue
		}

		val, err := cosem.ReadValue(c)
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d: %v", ErrMalformed, i, err)
		}
		if val.Tag == cosem.TagVisibleString {
			if known {
				record[name] = val.Str
			}
			continue
		}
		raw, ok := val.AsInt64()
		if !ok {
			return nil, fmt.Errorf("%w: pair %d: unexpected value tag %v", ErrMalformed, i, val.Tag)
		}
		if !known {
			continue
		}
		if scale, scaled := fieldScaling[name]; scaled {
			record[name] = applyScale(raw, scale)
		} else {
			record[name] = raw
		}
	}

	if c.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, c.Remaining())
	}

	return record, nil
}

// decodeValueElements handles a structure of n bare values, recovering
// field identity positionally from a fixed schema selected by n.
func decodeValueElements(body []byte) (map[string]any, error) {
	c := cosem.NewCursor(body)

	if err := c.ExpectTag(cosem.TagStructure); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	n, err := c.Byte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	fields := fieldListForLength(int(n))
	if fields == nil {
		return nil, fmt.Errorf("%w: no value-elements schema for length %d", ErrMalformed, n)
	}

	record := map[string]any{"meter_manufacturer": "Kaifa"}

	for i := 0; i < int(n); i++ {
		name := fields[i]
		tag, err := c.PeekByte()
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
		}

		if cosem.Tag(tag) == cosem.TagOctetString {
			if _, err := c.Byte(); err != nil {
				return nil, err
			}
			length, err := c.Byte()
			if err != nil {
				return nil, err
			}
			if i < 4 {
				text, err := c.Bytes(int(length))
				if err != nil {
					return nil, err
				}
				record[name] = string(text)
				continue
			}
			if length != 12 {
				return nil, fmt.Errorf("%w: item %d: expected date-time octet-string", ErrMalformed, i)
			}
			dt, err := cosem.ReadDateTime(c)
			if err != nil {
				return nil, err
			}
			record[name] = dt.ToTime()
			continue
		}

		val, err := cosem.ReadValue(c)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
		}
		if val.Tag == cosem.TagVisibleString {
			record[name] = val.Str
			continue
		}
		raw, ok := val.AsInt64()
		if !ok {
			return nil, fmt.Errorf("%w: item %d: unexpected value tag %v", ErrMalformed, i, val.Tag)
		}
		if scale, scaled := fieldScaling[name]; scaled {
			record[name] = applyScale(raw, scale)
		} else {
			record[name] = raw
		}
	}

	if c.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, c.Remaining())
	}

	return record, nil
}
