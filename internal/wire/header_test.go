package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_HeaderRoundTrip(t *testing.T) {
	h1 := Header{
		PacketID:              0xBEEF,
		IsResponse:            true,
		OpCode:                OpCodeStatus,
		AuthoritativeAnswer:   true,
		Truncation:            true,
		RecursionDesired:      true,
		RecursionAvailable:    true,
		Reserved:              5,
		ResponseCode:          ResponseCodeRefused,
		QuestionCount:         1,
		AnswerRecordCount:     2,
		AuthorityRecordCount:  3,
		AdditionalRecordCount: 4,
	}

	buf := &bytes.Buffer{}
	require.NoError(t, h1.Encode(buf))
	require.Len(t, buf.Bytes(), HeaderLength)

	h2, err := ParseHeader(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	buf2 := &bytes.Buffer{}
	require.NoError(t, h2.Encode(buf2))
	require.Equal(t, buf.Bytes(), buf2.Bytes())
}

func Test_HeaderParseShortBuffer(t *testing.T) {
	_, err := ParseHeader(make([]byte, 11))
	require.Error(t, err)
	require.True(t, IsMalformed(err))
}

func Test_HeaderParseUnknownCodes(t *testing.T) {
	raw := make([]byte, HeaderLength)
	raw[2] = 0x0F << 3 // opcode 15
	raw[3] = 0x0B      // rcode 11

	h, err := ParseHeader(raw)
	require.NoError(t, err)
	require.False(t, h.OpCode.Known())
	require.False(t, h.ResponseCode.Known())
	require.Equal(t, OpCode(15), h.OpCode)
	require.Equal(t, ResponseCode(11), h.ResponseCode)
}

func Test_HeaderEncodeUnknownCodesRejected(t *testing.T) {
	h := Header{OpCode: OpCode(9)}
	require.Error(t, h.Encode(&bytes.Buffer{}))

	h = Header{ResponseCode: ResponseCode(12)}
	require.Error(t, h.Encode(&bytes.Buffer{}))
}

func Test_NewQueryHeader(t *testing.T) {
	h := NewQueryHeader(3)
	require.False(t, h.IsResponse)
	require.Equal(t, OpCodeQuery, h.OpCode)
	require.False(t, h.RecursionDesired)
	require.Equal(t, uint16(3), h.QuestionCount)
	require.Equal(t, uint16(0), h.AnswerRecordCount)
	require.Equal(t, uint16(0), h.AuthorityRecordCount)
	require.Equal(t, uint16(0), h.AdditionalRecordCount)
}

func Test_HeaderBitLayout(t *testing.T) {
	h := Header{
		PacketID:         0x1234,
		IsResponse:       true,
		OpCode:           OpCodeInverseQuery,
		RecursionDesired: true,
		ResponseCode:     ResponseCodeNameError,
	}
	buf := &bytes.Buffer{}
	require.NoError(t, h.Encode(buf))

	raw := buf.Bytes()
	require.Equal(t, byte(0x12), raw[0])
	require.Equal(t, byte(0x34), raw[1])
	// QR=1 OPCODE=0001 AA=0 TC=0 RD=1
	require.Equal(t, byte(0x89), raw[2])
	// RA=0 Z=000 RCODE=0011
	require.Equal(t, byte(0x03), raw[3])
}
