package crcutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCrc16sum(t *testing.T) {
	// 01 03 00 00 00 0A -> C5 CD
	sum := CheckCrc16sum([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A})
	assert.Equal(t, uint16(0xCDC5), sum)
}

func TestCheckCrc16sumEmpty(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), CheckCrc16sum(nil))
}
