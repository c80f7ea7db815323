package aidon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvorlund/hanreader/pkg/cosem"
	"github.com/halvorlund/hanreader/pkg/obis"
)

func obisElement(code [6]byte, content []byte) []byte {
	el := []byte{byte(cosem.TagStructure), 0x03, byte(cosem.TagOctetString), 0x06}
	el = append(el, code[:]...)
	el = append(el, content...)
	return el
}

func buildAidonBody(elements ...[]byte) []byte {
	body := []byte{byte(cosem.TagArray), byte(len(elements))}
	for _, el := range elements {
		body = append(body, el...)
	}
	return body
}

func TestDecodeBodyTextAndScalar(t *testing.T) {
	meterID := obisElement([6]byte{1, 0, 96, 1, 1, 255}, append([]byte{byte(cosem.TagVisibleString), 0x03}, "Aid"...))
	power := obisElement([6]byte{1, 0, 1, 7, 0, 255}, []byte{
		byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x09, 0x60, // 2400
		byte(cosem.TagStructure), 0x02, byte(cosem.TagInteger), 0xFF, byte(cosem.TagEnum), 0x1B, // scaler -1, watt
	})

	body := buildAidonBody(meterID, power)

	elements, err := DecodeBody(body)
	require.NoError(t, err)
	require.Len(t, elements, 2)

	assert.Equal(t, "Aid", elements[0].Text)
	assert.Equal(t, obis.Code{1, 0, 96, 1, 1, 255}, elements[0].Obis)

	assert.True(t, elements[1].HasValue)
	assert.Equal(t, 240.0, elements[1].Value)
}

func TestDecodeBodyDateTimeElement(t *testing.T) {
	dt := []byte{byte(cosem.TagOctetString), 0x0C, 0x07, 0xEA, 0x07, 0x1F, 0x05, 0x0E, 0x05, 0x1E, 0x00, 0xFF, 0xFF, 0x00}
	el := obisElement([6]byte{0, 0, 1, 0, 0, 255}, dt)
	body := buildAidonBody(el)

	elements, err := DecodeBody(body)
	require.NoError(t, err)
	require.Len(t, elements, 1)
	require.NotNil(t, elements[0].Time)
	assert.Equal(t, 2026, elements[0].Time.Year())
}

func TestNormalizeSkipsUnknownOBIS(t *testing.T) {
	unknown := obisElement([6]byte{9, 9, 9, 9, 9, 9}, []byte{byte(cosem.TagVisibleString), 0x01, 'x'})
	known := obisElement([6]byte{1, 0, 96, 1, 1, 255}, append([]byte{byte(cosem.TagVisibleString), 0x03}, "AB1"...))

	elements, err := DecodeBody(buildAidonBody(unknown, known))
	require.NoError(t, err)

	record, err := Normalize(elements)
	require.NoError(t, err)

	assert.Equal(t, "Aidon", record["meter_manufacturer"])
	assert.Equal(t, "AB1", record[obis.FieldMeterID])
	assert.Len(t, record, 2)
}

func TestDecodeRejectsNonArray(t *testing.T) {
	_, err := Decode([]byte{byte(cosem.TagStructure), 0x00})
	assert.ErrorIs(t, err, ErrMalformed)
}
