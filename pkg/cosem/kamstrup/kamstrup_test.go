package kamstrup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvorlund/hanreader/pkg/cosem"
	"github.com/halvorlund/hanreader/pkg/obis"
)

func taggedElement(code [6]byte, value []byte) []byte {
	el := []byte{byte(cosem.TagOctetString), 0x06}
	el = append(el, code[:]...)
	el = append(el, value...)
	return el
}

// octetString builds a plain octet-string-tagged text value, the
// encoding Kamstrup uses for its text fields.
func octetString(s string) []byte {
	return append([]byte{byte(cosem.TagOctetString), byte(len(s))}, s...)
}

func u32(v uint32) []byte {
	return []byte{byte(cosem.TagDoubleLongUnsigned), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func buildKamstrupBody(meterType string, currentRaw, energyRaw uint32, padding bool) []byte {
	body := []byte{byte(cosem.TagStructure), 0x04}
	body = append(body, octetString("1")...) // list-version-id, no OBIS tag

	if padding {
		body = append(body, byte(cosem.TagNull))
	}
	body = append(body, taggedElement([6]byte{0, 0, 96, 1, 7, 255}, octetString(meterType))...)

	if padding {
		body = append(body, byte(cosem.TagNull), byte(cosem.TagNull))
	}
	body = append(body, taggedElement([6]byte{1, 0, 31, 7, 0, 255}, u32(currentRaw))...)

	body = append(body, taggedElement([6]byte{1, 0, 1, 8, 0, 255}, u32(energyRaw))...)

	return body
}

func TestDecodeCTMeterScalesCurrentByThousandths(t *testing.T) {
	body := buildKamstrupBody("6851111", 1500, 100, true)

	record, err := Decode(body)
	require.NoError(t, err)

	assert.Equal(t, "Kamstrup", record["meter_manufacturer"])
	assert.Equal(t, "1", record[obis.FieldListVersionID])
	assert.Equal(t, "6851111", record[obis.FieldMeterType])
	assert.Equal(t, 1.5, record[obis.FieldCurrentL1])
	assert.Equal(t, 1000.0, record[obis.FieldActiveEnergyImportTotal])
}

func TestDecodeNonCTMeterScalesCurrentByHundredths(t *testing.T) {
	body := buildKamstrupBody("6520511", 1500, 100, false)

	record, err := Decode(body)
	require.NoError(t, err)

	assert.Equal(t, 15.0, record[obis.FieldCurrentL1])
	assert.Equal(t, 1000.0, record[obis.FieldActiveEnergyImportTotal])
}

func TestDecodeFirstElementHasNoOBISTag(t *testing.T) {
	body := buildKamstrupBody("6520511", 100, 100, false)

	c := cosem.NewCursor(body[2:])
	el, err := decodeElement(c, true)
	require.NoError(t, err)
	assert.Nil(t, el.obis)
	assert.Equal(t, "1", el.text)
}
