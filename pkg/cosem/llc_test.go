package cosem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripLLC(t *testing.T) {
	info := []byte{0xE6, 0xE7, 0x00, 0x0F, 0x01, 0x02}
	body, err := StripLLC(info)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0F, 0x01, 0x02}, body)
}

func TestStripLLCRejectsBadSAPs(t *testing.T) {
	_, err := StripLLC([]byte{0x00, 0x00, 0x00, 0x01})
	assert.Error(t, err)
}

func TestStripLLCRejectsShortInput(t *testing.T) {
	_, err := StripLLC([]byte{0xE6, 0xE7})
	assert.Error(t, err)
}

func TestReadNotificationWithoutDateTime(t *testing.T) {
	data := []byte{
		0x0F,                   // data-notification tag
		0x00, 0x00, 0x00, 0x01, // long-invoke-id-and-priority
		byte(TagDoubleLongUnsigned), 0x00, 0x00, 0x01, 0x2C, // body starts here
	}
	c := NewCursor(data)
	n, err := ReadNotification(c)
	require.NoError(t, err)

	assert.Nil(t, n.DateTime)
	assert.EqualValues(t, 1, n.InvokeIDAndPriority.InvokeID)
	assert.Equal(t, data[5:], n.Body)
}

func TestReadNotificationWithDateTime(t *testing.T) {
	data := []byte{
		0x0F,
		0x00, 0x00, 0x00, 0x01,
		byte(TagOctetString), 0x0C, // length 12 selects the date-time path
		0x07, 0xEA, 0x07, 0x1F, 0x05, 0x0E, 0x05, 0x1E, 0x00, 0xFF, 0xFF, 0x00,
		byte(TagLongUnsigned), 0x00, 0x64, // body starts here
	}
	c := NewCursor(data)
	n, err := ReadNotification(c)
	require.NoError(t, err)

	require.NotNil(t, n.DateTime)
	assert.Equal(t, uint16(2026), n.DateTime.Year)
	assert.Equal(t, data[19:], n.Body)
}

func TestReadNotificationRejectsWrongAPDUTag(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x00, 0x00, 0x00, 0x00})
	_, err := ReadNotification(c)
	assert.Error(t, err)
}

func TestReadObisValue(t *testing.T) {
	data := []byte{byte(TagOctetString), 0x06, 1, 0, 1, 8, 0, 255}
	c := NewCursor(data)
	code, err := ReadObisValue(c)
	require.NoError(t, err)
	assert.Equal(t, [6]byte{1, 0, 1, 8, 0, 255}, code)
}
