package cosem

import (
	"time"
)

// unspecifiedByte marks a date-time field as not present in the
// octet-string encoding (Blue Book §4.1.6.1).
const unspecifiedByte = 0xFF

// unspecifiedDeviation marks the time-zone deviation field as absent.
const unspecifiedDeviation = -0x8000

// ClockStatus decodes the one-byte clock-status bitfield trailing a
// COSEM date-time.
type ClockStatus struct {
	InvalidValue      bool
	Doubtful          bool
	DifferentClockBase bool
	InvalidClockStatus bool
	DaylightSaving     bool
}

func decodeClockStatus(b byte) ClockStatus {
	return ClockStatus{
		InvalidValue:       b&0x01 != 0,
		Doubtful:           b&0x02 != 0,
		DifferentClockBase: b&0x04 != 0,
		InvalidClockStatus: b&0x08 != 0,
		DaylightSaving:     b&0x80 != 0,
	}
}

// DateTime is a decoded COSEM date-time, a 12-octet structure of
// year(2) month day day-of-week hour minute second hundredths
// deviation(2, minutes from UTC) clock-status. The one-byte fields keep
// their raw value, so an "unspecified" field holds 0xFF here; ToTime
// maps those to defaults. An unspecified deviation is reported by
// HasDeviation being false.
type DateTime struct {
	Year           uint16
	Month          uint8
	DayOfMonth     uint8
	DayOfWeek      uint8
	Hour           uint8
	Minute         uint8
	Second         uint8
	Hundredths     uint8
	HasDeviation   bool
	DeviationMin   int16 // minutes, negative is west of UTC, per COSEM sign convention
	Status         ClockStatus
}

// ReadDateTime decodes a 12-byte COSEM date-time octet string, already
// stripped of its octet-string length prefix.
func ReadDateTime(c *Cursor) (DateTime, error) {
	raw, err := c.Bytes(12)
	if err != nil {
		return DateTime{}, err
	}

	dt := DateTime{
		Year:       uint16(raw[0])<<8 | uint16(raw[1]),
		Month:      raw[2],
		DayOfMonth: raw[3],
		DayOfWeek:  raw[4],
		Hour:       raw[5],
		Minute:     raw[6],
		Second:     raw[7],
		Hundredths: raw[8],
	}

	deviation := int16(uint16(raw[9])<<8 | uint16(raw[10]))
	if deviation != unspecifiedDeviation {
		dt.HasDeviation = true
		dt.DeviationMin = deviation
	}

	dt.Status = decodeClockStatus(raw[11])

	return dt, nil
}

// ToTime converts the decoded fields to a time.Time. Unspecified (0xFF)
// month and day-of-month fields are treated as 1, and unspecified
// hour/minute/second/hundredths fields as zero. When a deviation is
// present the result is in a fixed-offset
// location; otherwise it is naive UTC.
func (dt DateTime) ToTime() time.Time {
	month := int(dt.Month)
	if dt.Month == unspecifiedByte {
		month = 1
	}
	day := int(dt.DayOfMonth)
	if dt.DayOfMonth == unspecifiedByte {
		day = 1
	}
	hour := clearUnspecified(dt.Hour)
	minute := clearUnspecified(dt.Minute)
	second := clearUnspecified(dt.Second)
	nsec := 0
	if dt.Hundredths != unspecifiedByte {
		nsec = int(dt.Hundredths) * 10 * int(time.Millisecond)
	}

	loc := time.UTC
	if dt.HasDeviation {
		loc = time.FixedZone("", int(dt.DeviationMin)*60)
	}

	return time.Date(int(dt.Year), time.Month(month), day, hour, minute, second, nsec, loc)
}

func clearUnspecified(b uint8) int {
	if b == unspecifiedByte {
		return 0
	}
	return int(b)
}

// ScalerUnit is a COSEM scaler-unit compound value: an exponent of ten
// and a physical unit, as attached to register values.
type ScalerUnit struct {
	Exponent int8
	Unit     PhysicalUnit
}

// ReadScalerUnit decodes a structure-of-two (integer exponent,
// enum unit) scaler-unit value.
func ReadScalerUnit(c *Cursor) (ScalerUnit, error) {
	if err := c.ExpectTag(TagStructure); err != nil {
		return ScalerUnit{}, err
	}
	if _, err := c.Byte(); err != nil { // element count, always 2
		return ScalerUnit{}, err
	}

	exp, err := ReadValue(c)
	if err != nil {
		return ScalerUnit{}, err
	}
	unit, err := ReadValue(c)
	if err != nil {
		return ScalerUnit{}, err
	}

	return ScalerUnit{Exponent: exp.I8, Unit: PhysicalUnit(unit.Enum)}, nil
}

// Apply scales a raw integer register value by 10^Exponent.
func (su ScalerUnit) Apply(raw int64) float64 {
	scale := 1.0
	exp := int(su.Exponent)
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			scale *= 10
		}
	} else {
		for i := 0; i < -exp; i++ {
			scale /= 10
		}
	}
	return float64(raw) * scale
}
