package wire

import (
	"bytes"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// compressedQueryReply builds a packet with one question for
// "codecrafters.io" and one answer whose name is a pointer to offset 12,
// the start of the question's name.
func compressedQueryReply(t *testing.T) []byte {
	t.Helper()

	header := Header{
		PacketID:          1234,
		IsResponse:        true,
		OpCode:            OpCodeQuery,
		QuestionCount:     1,
		AnswerRecordCount: 1,
	}
	question := Question{
		Name:  DomainName{Labels: []Label{{Value: "codecrafters"}, {Value: "io"}}},
		Type:  RecordTypeAddress,
		Class: ClassInternet,
	}

	buf := &bytes.Buffer{}
	require.NoError(t, header.Encode(buf))
	require.NoError(t, question.Encode(buf))
	buf.Write([]byte{
		0xC0, 0x0C, // pointer to offset 12
		0, 1, // type A
		0, 1, // class IN
		0, 0, 0, 60, // TTL
		0, 4, // RDLENGTH
		8, 8, 8, 8,
	})
	return buf.Bytes()
}

func Test_ParseMessagePointerResolution(t *testing.T) {
	msg, err := ParseMessage(compressedQueryReply(t))
	require.NoError(t, err)
	require.Len(t, msg.Questions, 1)
	require.Len(t, msg.Answers, 1)

	answer := msg.Answers[0]
	require.Len(t, answer.Name.Labels, 1)
	require.True(t, answer.Name.Labels[0].Pointer)

	flat, err := answer.Name.Decompress(msg)
	require.NoError(t, err)
	require.Equal(t, []Label{{Value: "codecrafters"}, {Value: "io"}}, flat.Labels)
	require.Equal(t, IPv4{8, 8, 8, 8}, answer.Data)
}

func Test_LabelsAtRejectsHeaderOffsets(t *testing.T) {
	msg, err := ParseMessage(compressedQueryReply(t))
	require.NoError(t, err)

	_, err = msg.LabelsAt(5)
	require.Error(t, err)
	require.True(t, IsMalformed(err))
}

func Test_LabelsAtRejectsOffsetsPastQuestions(t *testing.T) {
	msg, err := ParseMessage(compressedQueryReply(t))
	require.NoError(t, err)

	// question spans [12, 33)
	_, err = msg.LabelsAt(33)
	require.Error(t, err)
	require.True(t, IsMalformed(err))
}

func Test_LabelsAtMidQuestion(t *testing.T) {
	msg, err := ParseMessage(compressedQueryReply(t))
	require.NoError(t, err)

	// 12 + 13 is the start of "io"
	labels, err := msg.LabelsAt(25)
	require.NoError(t, err)
	require.Equal(t, []Label{{Value: "io"}}, labels)

	// not a label boundary
	_, err = msg.LabelsAt(13)
	require.Error(t, err)
}

func Test_ParseMessageCountOverrunsBuffer(t *testing.T) {
	header := Header{QuestionCount: 2}
	question := Question{
		Name:  DomainName{Labels: []Label{{Value: "io"}}},
		Type:  RecordTypeAddress,
		Class: ClassInternet,
	}
	buf := &bytes.Buffer{}
	require.NoError(t, header.Encode(buf))
	require.NoError(t, question.Encode(buf))

	_, err := ParseMessage(buf.Bytes())
	require.Error(t, err)
	require.True(t, IsMalformed(err))
}

func Test_NewReplyDerivation(t *testing.T) {
	query := &Message{
		Header: Header{
			PacketID:         1234,
			OpCode:           OpCodeQuery,
			RecursionDesired: true,
			QuestionCount:    1,
		},
		Questions: []Question{{
			Name:  DomainName{Labels: []Label{{Value: "example"}, {Value: "com"}}},
			Type:  RecordTypeAddress,
			Class: ClassInternet,
		}},
	}
	answers := []ResourceRecord{
		NewResourceRecord(query.Questions[0].Name, RecordTypeAddress, ClassInternet, 60, IPv4{1, 1, 1, 1}),
		NewResourceRecord(query.Questions[0].Name, RecordTypeAddress, ClassInternet, 60, IPv4{8, 8, 8, 8}),
	}

	reply := NewReply(query, query.Questions, answers)
	require.Equal(t, uint16(1234), reply.Header.PacketID)
	require.True(t, reply.Header.IsResponse)
	require.Equal(t, OpCodeQuery, reply.Header.OpCode)
	require.Equal(t, ResponseCodeOk, reply.Header.ResponseCode)
	require.False(t, reply.Header.RecursionDesired)
	require.False(t, reply.Header.RecursionAvailable)
	require.Equal(t, uint16(1), reply.Header.QuestionCount)
	require.Equal(t, uint16(2), reply.Header.AnswerRecordCount)
	require.Equal(t, uint16(0), reply.Header.AuthorityRecordCount)
	require.Equal(t, uint16(0), reply.Header.AdditionalRecordCount)
}

func Test_NewReplyNonQueryOpcode(t *testing.T) {
	query := &Message{Header: Header{PacketID: 7, OpCode: OpCodeStatus}}
	reply := NewReply(query, nil, nil)
	require.Equal(t, OpCodeStatus, reply.Header.OpCode)
	require.Equal(t, ResponseCodeNotImplemented, reply.Header.ResponseCode)
}

func Test_EncodeIsIdempotent(t *testing.T) {
	msg := NewQuery([]Question{{
		Name:  DomainName{Labels: []Label{{Value: "example"}, {Value: "com"}}},
		Type:  RecordTypeAddress,
		Class: ClassInternet,
	}})

	first, err := msg.Encode()
	require.NoError(t, err)
	second, err := msg.Encode()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func Test_MessageRoundTrip(t *testing.T) {
	msg := &Message{
		Header: Header{
			PacketID:          41,
			IsResponse:        true,
			OpCode:            OpCodeQuery,
			QuestionCount:     1,
			AnswerRecordCount: 1,
		},
		Questions: []Question{{
			Name:  DomainName{Labels: []Label{{Value: "example"}, {Value: "com"}}},
			Type:  RecordTypeAddress,
			Class: ClassInternet,
		}},
		Answers: []ResourceRecord{
			NewResourceRecord(
				DomainName{Labels: []Label{{Value: "example"}, {Value: "com"}}},
				RecordTypeAddress, ClassInternet, 300, IPv4{192, 0, 2, 9}),
		},
	}

	raw, err := msg.Encode()
	require.NoError(t, err)

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)
	require.Equal(t, msg, parsed)
}

// Our encoder's output should be readable by an independent DNS
// implementation.
func Test_EncodeCrossCheckedAgainstMiekg(t *testing.T) {
	msg := &Message{
		Header: Header{
			PacketID:          4242,
			IsResponse:        true,
			OpCode:            OpCodeQuery,
			QuestionCount:     1,
			AnswerRecordCount: 1,
		},
		Questions: []Question{{
			Name:  DomainName{Labels: []Label{{Value: "codecrafters"}, {Value: "io"}}},
			Type:  RecordTypeAddress,
			Class: ClassInternet,
		}},
		Answers: []ResourceRecord{
			NewResourceRecord(
				DomainName{Labels: []Label{{Value: "codecrafters"}, {Value: "io"}}},
				RecordTypeAddress, ClassInternet, 60, IPv4{8, 8, 8, 8}),
		},
	}

	raw, err := msg.Encode()
	require.NoError(t, err)

	var parsed dns.Msg
	require.NoError(t, parsed.Unpack(raw))
	require.Equal(t, uint16(4242), parsed.Id)
	require.True(t, parsed.Response)
	require.Len(t, parsed.Question, 1)
	require.Equal(t, "codecrafters.io.", parsed.Question[0].Name)
	require.Equal(t, dns.TypeA, parsed.Question[0].Qtype)
	require.Len(t, parsed.Answer, 1)

	a, ok := parsed.Answer[0].(*dns.A)
	require.True(t, ok)
	require.Equal(t, "8.8.8.8", a.A.String())
	require.Equal(t, uint32(60), a.Hdr.Ttl)
}
