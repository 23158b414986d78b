// Package wire implements the RFC 1035 message format: header
// bit-packing, domain-name compression-pointer resolution, question and
// resource-record codecs, and the message container tying them together.
//
// The package is pure: it never logs and never touches a socket. All
// failures are returned as errors wrapping the sentinels in errors.go,
// so callers can tell malformed packets from unimplemented features.
package wire

import (
	"bytes"

	"github.com/pkg/errors"
)

// Message is a complete DNS packet: a header followed by the question,
// answer, authority and additional sections. A message is built either
// by parsing an inbound buffer or through NewQuery/NewReply, serialized
// once, and dropped.
type Message struct {
	Header      Header
	Questions   []Question
	Answers     []ResourceRecord
	Authorities []ResourceRecord
	Additionals []ResourceRecord
}

// ParseMessage decodes a whole packet. The header counts drive how many
// entries are read from each section; running out of buffer before a
// count is satisfied is a malformed-input failure.
func ParseMessage(buf []byte) (*Message, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	msg := &Message{Header: header}
	offset := HeaderLength

	for i := uint16(0); i < header.QuestionCount; i++ {
		var q Question
		q, offset, err = ParseQuestion(buf, offset)
		if err != nil {
			return nil, errors.Wrapf(err, "question %d", i)
		}
		msg.Questions = append(msg.Questions, q)
	}

	if msg.Answers, offset, err = parseRecords(buf, offset, header.AnswerRecordCount, "answer"); err != nil {
		return nil, err
	}
	if msg.Authorities, offset, err = parseRecords(buf, offset, header.AuthorityRecordCount, "authority"); err != nil {
		return nil, err
	}
	if msg.Additionals, _, err = parseRecords(buf, offset, header.AdditionalRecordCount, "additional"); err != nil {
		return nil, err
	}
	return msg, nil
}

func parseRecords(buf []byte, offset int, count uint16, section string) ([]ResourceRecord, int, error) {
	var records []ResourceRecord
	for i := uint16(0); i < count; i++ {
		r, next, err := ParseResourceRecord(buf, offset)
		if err != nil {
			return nil, offset, errors.Wrapf(err, "%s record %d", section, i)
		}
		records = append(records, r)
		offset = next
	}
	return records, offset, nil
}

// NewQuery wraps the questions into a fresh outbound query with a
// randomized packet ID and empty record sections.
func NewQuery(questions []Question) *Message {
	return &Message{
		Header:    NewQueryHeader(uint16(len(questions))),
		Questions: questions,
	}
}

// NewReply derives a reply from a query: the packet ID and opcode are
// echoed, every flag is cleared, and the response code is Ok for a
// standard query and NotImplemented for anything else. Section counts
// come from the supplied slices; authority and additional stay empty.
func NewReply(query *Message, questions []Question, answers []ResourceRecord) *Message {
	responseCode := ResponseCodeNotImplemented
	if query.Header.OpCode == OpCodeQuery {
		responseCode = ResponseCodeOk
	}
	return &Message{
		Header: Header{
			PacketID:          query.Header.PacketID,
			IsResponse:        true,
			OpCode:            query.Header.OpCode,
			ResponseCode:      responseCode,
			QuestionCount:     uint16(len(questions)),
			AnswerRecordCount: uint16(len(answers)),
		},
		Questions: questions,
		Answers:   answers,
	}
}

// Encode serializes the message: header first, then the four sections in
// order. Encoding is deterministic; the same message always yields the
// same bytes. The 512-byte UDP limit is the transport's concern, not
// enforced here.
func (m *Message) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := m.Header.Encode(buf); err != nil {
		return nil, err
	}
	for i, q := range m.Questions {
		if err := q.Encode(buf); err != nil {
			return nil, errors.Wrapf(err, "question %d", i)
		}
	}
	for _, section := range []struct {
		name    string
		records []ResourceRecord
	}{
		{"answer", m.Answers},
		{"authority", m.Authorities},
		{"additional", m.Additionals},
	} {
		for i, r := range section.records {
			if err := r.Encode(buf); err != nil {
				return nil, errors.Wrapf(err, "%s record %d", section.name, i)
			}
		}
	}
	return buf.Bytes(), nil
}

// LabelsAt resolves a message-absolute byte offset to the label suffix
// starting there, walking the question section. Offsets inside the
// header or beyond the last question are rejected. Pointers into the
// answer sections are not resolved; upstream behavior only ever looked
// at questions, and replies from real resolvers compress against the
// question they echo.
func (m *Message) LabelsAt(offset uint16) ([]Label, error) {
	if offset < HeaderLength {
		return nil, errors.Wrapf(ErrBadPointer, "offset %d points into the header", offset)
	}
	at := uint16(HeaderLength)
	for i := range m.Questions {
		length := uint16(m.Questions[i].Length())
		if offset < at+length {
			return m.Questions[i].LabelsFrom(int(offset - at))
		}
		at += length
	}
	return nil, errors.Wrapf(ErrBadPointer, "offset %d is past the question section", offset)
}
