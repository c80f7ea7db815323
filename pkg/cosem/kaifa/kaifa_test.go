package kaifa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvorlund/hanreader/pkg/cosem"
	"github.com/halvorlund/hanreader/pkg/obis"
)

func TestDecodeValueElementsSingleItem(t *testing.T) {
	body := []byte{
		byte(cosem.TagStructure), 0x01,
		byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x09, 0x60, // 2400
	}

	record, err := decodeValueElements(body)
	require.NoError(t, err)
	assert.Equal(t, "Kaifa", record["meter_manufacturer"])
	assert.Equal(t, int64(2400), record[obis.FieldActivePowerImport])
}

func TestDecodeValueElementsAppliesScaling(t *testing.T) {
	// A 9-item single-phase list-2: ListVersionID, MeterID, MeterType,
	// ActivePowerImport, ActivePowerExport, ReactivePowerImport,
	// ReactivePowerExport, CurrentL1, VoltageL1.
	body := []byte{byte(cosem.TagStructure), 0x09}
	body = append(body, byte(cosem.TagVisibleString), 0x01, '1')                  // list_ver_id
	body = append(body, byte(cosem.TagVisibleString), 0x03, 'A', 'B', '1')        // meter_id
	body = append(body, byte(cosem.TagVisibleString), 0x03, 'K', 'F', 'M')        // meter_type
	body = append(body, byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x00, 0x0A) // active power import = 10
	body = append(body, byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x00, 0x00) // active power export
	body = append(body, byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x00, 0x00) // reactive power import
	body = append(body, byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x00, 0x00) // reactive power export
	body = append(body, byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x03, 0xE8) // current_l1 raw 1000 -> *1e-3 = 1.0
	body = append(body, byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x09, 0x06) // voltage_l1 raw 2310 -> *1e-1 = 231.0

	record, err := decodeValueElements(body)
	require.NoError(t, err)

	assert.Equal(t, "AB1", record[obis.FieldMeterID])
	assert.Equal(t, int64(10), record[obis.FieldActivePowerImport])
	assert.Equal(t, 1.0, record[obis.FieldCurrentL1])
	assert.Equal(t, 231.0, record[obis.FieldVoltageL1])
}

func obisPair(code [6]byte, value []byte) []byte {
	el := []byte{byte(cosem.TagOctetString), 0x06}
	el = append(el, code[:]...)
	el = append(el, value...)
	return el
}

func TestDecodeObisElementsShape(t *testing.T) {
	energy := obisPair([6]byte{1, 1, 1, 8, 0, 255}, []byte{byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x00, 0x64})
	text := obisPair([6]byte{1, 0, 96, 1, 1, 255}, []byte{byte(cosem.TagVisibleString), 0x03, 'S', 'E', '1'})

	body := []byte{byte(cosem.TagStructure), 0x04}
	body = append(body, energy...)
	body = append(body, text...)

	record, err := decodeObisElements(body)
	require.NoError(t, err)
	assert.Equal(t, "Kaifa", record["meter_manufacturer"])
	assert.Equal(t, int64(100), record[obis.FieldActiveEnergyImportTotal])
	assert.Equal(t, "SE1", record[obis.FieldMeterID])
}

func TestDecodeTriesObisElementsBeforeValueElements(t *testing.T) {
	energy := obisPair([6]byte{1, 1, 1, 8, 0, 255}, []byte{byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x00, 0x64})
	body := []byte{byte(cosem.TagStructure), 0x02}
	body = append(body, energy...)

	record, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, int64(100), record[obis.FieldActiveEnergyImportTotal])
}

func TestDecodeFallsBackToValueElements(t *testing.T) {
	body := []byte{
		byte(cosem.TagStructure), 0x01,
		byte(cosem.TagDoubleLongUnsigned), 0x00, 0x00, 0x00, 0x05,
	}

	record, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, int64(5), record[obis.FieldActivePowerImport])
}

func TestDecodeRejectsUnknownShape(t *testing.T) {
	body := []byte{byte(cosem.TagStructure), 0x03, byte(cosem.TagInteger), 0x01, byte(cosem.TagInteger), 0x02, byte(cosem.TagInteger), 0x03}
	_, err := Decode(body)
	assert.Error(t, err)
}
