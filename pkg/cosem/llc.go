package cosem

import "fmt"

// LLC header bytes fixed by IEC 62056-46 for DLMS/COSEM over HDLC.
const (
	llcDestinationSAP byte = 0xE6
	llcSourceSAP      byte = 0xE7
	llcControl        byte = 0x00
)

// dataNotificationTag is the APDU choice tag for an unconfirmed
// data-notification, the only APDU this pipeline decodes.
const dataNotificationTag = 0x0F

// LongInvokeIDAndPriority is the 4-byte bitfield prefixing a
// data-notification body.
type LongInvokeIDAndPriority struct {
	InvokeID             uint32 // low 24 bits
	SelfDescriptive      bool
	ProcessingOptionFlag bool
	ServiceClassDuplex   bool
	Priority             bool
}

func decodeLongInvokeIDAndPriority(raw uint32) LongInvokeIDAndPriority {
	return LongInvokeIDAndPriority{
		InvokeID:             raw & 0x00FFFFFF,
		SelfDescriptive:      raw&(1<<24) != 0,
		ProcessingOptionFlag: raw&(1<<25) != 0,
		ServiceClassDuplex:   raw&(1<<30) != 0,
		Priority:             raw&(1<<31) != 0,
	}
}

// Notification is a decoded data-notification APDU: the invoke-id
// bitfield, an optional timestamp, and the undecoded notification
// body bytes a vendor grammar parses next.
type Notification struct {
	InvokeIDAndPriority LongInvokeIDAndPriority
	DateTime            *DateTime
	Body                []byte
}

// StripLLC removes the fixed 3-byte LLC header (DSAP, SSAP, control)
// that precedes every DLMS/COSEM APDU carried over HDLC, per
// IEC 62056-46.
func StripLLC(information []byte) ([]byte, error) {
	if len(information) < 3 {
		return nil, fmt.Errorf("cosem: information field too short for LLC header")
	}
	if information[0] != llcDestinationSAP || information[1] != llcSourceSAP {
		return nil, fmt.Errorf("cosem: unexpected LLC SAP bytes %#x %#x", information[0], information[1])
	}
	return information[3:], nil
}

// ReadNotification decodes a data-notification APDU: tag byte,
// long-invoke-id-and-priority, optional date-time, notification body.
func ReadNotification(c *Cursor) (Notification, error) {
	tag, err := c.Byte()
	if err != nil {
		return Notification{}, err
	}
	if tag != dataNotificationTag {
		return Notification{}, fmt.Errorf("cosem: unexpected APDU tag %#x, want data-notification %#x", tag, dataNotificationTag)
	}

	invokeRaw, err := c.Uint32()
	if err != nil {
		return Notification{}, err
	}

	n := Notification{InvokeIDAndPriority: decodeLongInvokeIDAndPriority(invokeRaw)}

	peek, err := c.PeekByte()
	if err != nil {
		return Notification{}, err
	}
	if peek == byte(TagOctetString) {
		if _, err := c.Byte(); err != nil {
			return Notification{}, err
		}
		length, err := c.Byte()
		if err != nil {
			return Notification{}, err
		}
		if length == 12 {
			dt, err := ReadDateTime(c)
			if err != nil {
				return Notification{}, err
			}
			n.DateTime = &dt
		} else {
			// Not a date-time octet-string after all; treat as start
			// of body and rewind the two bytes just consumed.
			c.pos -= 2
		}
	}

	n.Body = c.data[c.pos:]
	return n, nil
}

// ReadObis decodes a 6-byte octet-string OBIS code (the length prefix
// must already be known to be 6 by the caller's grammar).
func ReadObis(c *Cursor) ([6]byte, error) {
	var obis [6]byte
	b, err := c.Bytes(6)
	if err != nil {
		return obis, err
	}
	copy(obis[:], b)
	return obis, nil
}

// ReadObisValue decodes a full octet-string-tagged OBIS code value
// (tag byte, length byte, 6 content bytes), as used wherever the
// vendor grammars place an OBIS code inline as a tagged value.
func ReadObisValue(c *Cursor) ([6]byte, error) {
	var obis [6]byte
	if err := c.ExpectTag(TagOctetString); err != nil {
		return obis, err
	}
	n, err := c.Byte()
	if err != nil {
		return obis, err
	}
	if n != 6 {
		return obis, fmt.Errorf("cosem: OBIS octet-string has length %d, want 6", n)
	}
	return ReadObis(c)
}
