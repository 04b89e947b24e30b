package runtime

import (
	"dooyagateway/pkg/utils/binutil"
	"dooyagateway/pkg/utils/crcutil"
)

// BuildFrame 组装报文
// 55 | addr_l | addr_h | pdu... | crc_lo | crc_hi
func BuildFrame(addr DeviceAddress, pdu []byte) []byte {
	frame := make([]byte, 0, 3+len(pdu)+2)
	frame = append(frame, StartCode, addr.Low, addr.High)
	frame = append(frame, pdu...)
	frame = append(frame, binutil.Uint16ToBytesLittleEndian(crcutil.CheckCrc16sum(frame))...)
	return frame
}

// ReadPdu builds the pdu of a single-register read.
func ReadPdu(register Register) []byte {
	return []byte{byte(ReadRegister), byte(register), 0x01}
}

// ControlPdu builds the pdu of a control command, with an optional position
// argument for the set-percent command.
func ControlPdu(code ControlCode, args ...byte) []byte {
	pdu := []byte{byte(ControlDevice), byte(code)}
	return append(pdu, args...)
}

// WriteAddressPdu builds the pdu of the provisioning address write.
func WriteAddressPdu(newIdL, newIdH byte) []byte {
	return []byte{byte(WriteRegister), byte(RegisterAddrLow), 0x02, newIdL, newIdH}
}

// BroadcastPrefix is the expected head of the unsolicited frame the motor
// sends while in address programming mode.
func BroadcastPrefix() []byte {
	return []byte{StartCode, BroadcastAddrByte, BroadcastAddrByte, byte(AddressBroadcast), 0x01}
}

// ValidateResponse checks one raw response and hands it back on success.
// A 2-byte response is a status-only acknowledgement and carries no crc.
// Anything of 4 bytes or more is a data response whose trailing two bytes
// are the little-endian crc16 of everything before them.
func ValidateResponse(buf []byte) ([]byte, error) {
	if len(buf) < MinStatusResponseLength {
		return nil, ErrMessageTooShort
	}
	if len(buf) == MinStatusResponseLength {
		return buf, nil
	}
	if len(buf) < 4 {
		return nil, ErrMessageTooShort
	}

	sum := crcutil.CheckCrc16sum(buf[:len(buf)-2])
	crc := binutil.ParseUint16LittleEndian(buf[len(buf)-2:])
	if sum != crc {
		return nil, ErrCrc16Error
	}
	return buf, nil
}

// DataByte extracts the single data byte of a register read response.
func DataByte(buf []byte) (byte, error) {
	if len(buf) == MinStatusResponseLength {
		return 0, ErrStatusOnly
	}
	if len(buf) < MinDataResponseLength {
		return 0, ErrMessageTooShort
	}
	return buf[DataByteIndex], nil
}

// ParsePosition maps the raw percent register byte to a position. 0xFF means
// the stroke has not been calibrated and anything above 100 is invalid, both
// yield nil rather than a clamped value.
func ParsePosition(b byte) *int {
	if b == StrokeNotSet || b > MaxPercent {
		return nil
	}
	position := int(b)
	return &position
}
