package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFrameRoundTrip(t *testing.T) {
	addr := DeviceAddress{Low: 0x01, High: 0x00}
	frame := BuildFrame(addr, ReadPdu(RegisterPercent))

	require.GreaterOrEqual(t, len(frame), MinDataResponseLength)
	assert.Equal(t, StartCode, frame[0])
	assert.Equal(t, addr.Low, frame[1])
	assert.Equal(t, addr.High, frame[2])

	validated, err := ValidateResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, frame, validated)
}

func TestBuildFrameControl(t *testing.T) {
	frame := BuildFrame(DeviceAddress{Low: 0x12, High: 0x34}, ControlPdu(ControlPercent, 0x32))

	assert.Equal(t, byte(ControlDevice), frame[3])
	assert.Equal(t, byte(ControlPercent), frame[4])
	assert.Equal(t, byte(0x32), frame[5])
}

func TestValidateResponseStatusOnlySkipsCrc(t *testing.T) {
	buf := []byte{0x55, 0x01}

	validated, err := ValidateResponse(buf)
	assert.NoError(t, err)
	assert.Equal(t, buf, validated)
}

func TestValidateResponseTooShort(t *testing.T) {
	_, err := ValidateResponse([]byte{0x55})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = ValidateResponse([]byte{0x55, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestValidateResponseTamperedCrc(t *testing.T) {
	frame := BuildFrame(DeviceAddress{Low: 0x01, High: 0x00}, ReadPdu(RegisterMotorStatus))
	frame[len(frame)-1] ^= 0xFF

	_, err := ValidateResponse(frame)
	assert.ErrorIs(t, err, ErrCrc16Error)
}

func TestDataByte(t *testing.T) {
	frame := BuildFrame(DeviceAddress{Low: 0x01, High: 0x00}, []byte{byte(ReadRegister), byte(RegisterPercent), 0x2A})

	b, err := DataByte(frame)
	require.NoError(t, err)
	assert.Equal(t, byte(0x2A), b)

	_, err = DataByte([]byte{0x55, 0x01})
	assert.ErrorIs(t, err, ErrStatusOnly)

	_, err = DataByte([]byte{0x55, 0x01, 0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestParsePosition(t *testing.T) {
	assert.Nil(t, ParsePosition(0xFF))
	assert.Nil(t, ParsePosition(0x65))
	assert.Nil(t, ParsePosition(0xCB))

	for _, v := range []byte{0x00, 0x01, 0x32, 0x64} {
		got := ParsePosition(v)
		require.NotNil(t, got)
		assert.Equal(t, int(v), *got)
	}
}

func TestWriteAddressPdu(t *testing.T) {
	pdu := WriteAddressPdu(0x05, 0x01)
	assert.Equal(t, []byte{0x02, 0x00, 0x02, 0x05, 0x01}, pdu)
}

func TestBroadcastPrefix(t *testing.T) {
	assert.Equal(t, []byte{0x55, 0xFE, 0xFE, 0x04, 0x01}, BroadcastPrefix())
}

func TestValidAddressByte(t *testing.T) {
	assert.False(t, ValidAddressByte(0x00))
	assert.False(t, ValidAddressByte(0xFF))
	assert.True(t, ValidAddressByte(0x01))
	assert.True(t, ValidAddressByte(0xFE))
}
