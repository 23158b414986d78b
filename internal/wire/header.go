package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// HeaderLength is the fixed size of a DNS message header.
const HeaderLength = 12

// OpCode identifies the kind of DNS operation carried by a message. The
// underlying wire value is always preserved, so an unrecognized opcode
// survives a decode/encode round trip untouched.
type OpCode uint8

const (
	OpCodeQuery        OpCode = 0
	OpCodeInverseQuery OpCode = 1
	OpCodeStatus       OpCode = 2
)

// Known reports whether the opcode is one this codec recognizes.
func (o OpCode) Known() bool {
	return o <= OpCodeStatus
}

func (o OpCode) String() string {
	switch o {
	case OpCodeQuery:
		return "QUERY"
	case OpCodeInverseQuery:
		return "IQUERY"
	case OpCodeStatus:
		return "STATUS"
	}
	return "INVALID"
}

// ResponseCode is the status reported by a responding server.
type ResponseCode uint8

const (
	ResponseCodeOk             ResponseCode = 0
	ResponseCodeFormatError    ResponseCode = 1
	ResponseCodeServerFailure  ResponseCode = 2
	ResponseCodeNameError      ResponseCode = 3
	ResponseCodeNotImplemented ResponseCode = 4
	ResponseCodeRefused        ResponseCode = 5
)

// Known reports whether the response code is one this codec recognizes.
func (rc ResponseCode) Known() bool {
	return rc <= ResponseCodeRefused
}

func (rc ResponseCode) String() string {
	switch rc {
	case ResponseCodeOk:
		return "NOERROR"
	case ResponseCodeFormatError:
		return "FORMERR"
	case ResponseCodeServerFailure:
		return "SERVFAIL"
	case ResponseCodeNameError:
		return "NXDOMAIN"
	case ResponseCodeNotImplemented:
		return "NOTIMP"
	case ResponseCodeRefused:
		return "REFUSED"
	}
	return "INVALID"
}

// Header is the fixed 12-byte DNS message header. The four counts must
// match the lengths of the corresponding message sections when a message
// is serialized; when parsing they drive how many entries are decoded.
type Header struct {
	// PacketID is echoed between a query and its reply.
	PacketID uint16
	// IsResponse is the QR bit: set on replies, clear on queries.
	IsResponse bool
	// OpCode is the kind of query carried by the message.
	OpCode OpCode
	// AuthoritativeAnswer is set when the responder owns the queried zone.
	AuthoritativeAnswer bool
	// Truncation is set when the message exceeded the transport limit.
	Truncation bool
	// RecursionDesired asks the server to resolve the query recursively.
	RecursionDesired bool
	// RecursionAvailable advertises that the server supports recursion.
	RecursionAvailable bool
	// Reserved is the 3-bit Z field.
	Reserved uint8
	// ResponseCode reports the status of a reply.
	ResponseCode ResponseCode

	QuestionCount         uint16
	AnswerRecordCount     uint16
	AuthorityRecordCount  uint16
	AdditionalRecordCount uint16
}

// NewQueryHeader returns a header for a fresh outbound query carrying
// questionCount questions. The packet ID is randomized; collisions only
// matter for matching replies, so dns.Id is more than good enough.
func NewQueryHeader(questionCount uint16) Header {
	return Header{
		PacketID:      dns.Id(),
		IsResponse:    false,
		OpCode:        OpCodeQuery,
		QuestionCount: questionCount,
	}
}

// ParseHeader unpacks the first 12 bytes of buf. Unrecognized opcode or
// response-code values parse successfully and keep their raw value; the
// caller can detect them through Known.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLength {
		return Header{}, errors.Wrapf(ErrTruncated, "header needs %d bytes, have %d", HeaderLength, len(buf))
	}

	h := Header{
		PacketID:              binary.BigEndian.Uint16(buf[0:2]),
		IsResponse:            buf[2]>>7&0x01 != 0,
		OpCode:                OpCode(buf[2] >> 3 & 0x0F),
		AuthoritativeAnswer:   buf[2]>>2&0x01 != 0,
		Truncation:            buf[2]>>1&0x01 != 0,
		RecursionDesired:      buf[2]&0x01 != 0,
		RecursionAvailable:    buf[3]>>7&0x01 != 0,
		Reserved:              buf[3] >> 4 & 0x07,
		ResponseCode:          ResponseCode(buf[3] & 0x0F),
		QuestionCount:         binary.BigEndian.Uint16(buf[4:6]),
		AnswerRecordCount:     binary.BigEndian.Uint16(buf[6:8]),
		AuthorityRecordCount:  binary.BigEndian.Uint16(buf[8:10]),
		AdditionalRecordCount: binary.BigEndian.Uint16(buf[10:12]),
	}
	return h, nil
}

// Encode packs the header into buf. A header carrying an unrecognized
// opcode or response code is a configuration error and is rejected
// instead of being clamped to a reserved value.
func (h Header) Encode(buf *bytes.Buffer) error {
	if !h.OpCode.Known() {
		return errors.Wrapf(ErrBadEnum, "opcode %d", uint8(h.OpCode))
	}
	if !h.ResponseCode.Known() {
		return errors.Wrapf(ErrBadEnum, "response code %d", uint8(h.ResponseCode))
	}
	if h.Reserved > 0x07 {
		return errors.Wrapf(ErrBadEnum, "reserved field %d", h.Reserved)
	}

	var scratch [2]byte
	binary.BigEndian.PutUint16(scratch[:], h.PacketID)
	buf.Write(scratch[:])

	var flagsHi uint8
	if h.IsResponse {
		flagsHi |= 1 << 7
	}
	flagsHi |= uint8(h.OpCode) << 3
	if h.AuthoritativeAnswer {
		flagsHi |= 1 << 2
	}
	if h.Truncation {
		flagsHi |= 1 << 1
	}
	if h.RecursionDesired {
		flagsHi |= 1
	}
	buf.WriteByte(flagsHi)

	var flagsLo uint8
	if h.RecursionAvailable {
		flagsLo |= 1 << 7
	}
	flagsLo |= h.Reserved << 4
	flagsLo |= uint8(h.ResponseCode)
	buf.WriteByte(flagsLo)

	for _, count := range []uint16{
		h.QuestionCount, h.AnswerRecordCount, h.AuthorityRecordCount, h.AdditionalRecordCount,
	} {
		binary.BigEndian.PutUint16(scratch[:], count)
		buf.Write(scratch[:])
	}
	return nil
}
