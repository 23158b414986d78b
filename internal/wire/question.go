package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// RecordType is a DNS record type code. Unknown wire values are kept
// as-is so they round-trip; Known tells them apart from the assigned
// codes below.
type RecordType uint16

const (
	RecordTypeAddress          RecordType = 1
	RecordTypeNameServer       RecordType = 2
	RecordTypeMailDestination  RecordType = 3
	RecordTypeMailForwarder    RecordType = 4
	RecordTypeCName            RecordType = 5
	RecordTypeStartOfAuthority RecordType = 6
	RecordTypeMailbox          RecordType = 7
	RecordTypeMailGroup        RecordType = 8
	RecordTypeMailRename       RecordType = 9
	RecordTypeNull             RecordType = 10
	RecordTypeWellKnownService RecordType = 11
	RecordTypePointer          RecordType = 12
	RecordTypeHostInfo         RecordType = 13
	RecordTypeMailboxInfo      RecordType = 14
	RecordTypeMailExchange     RecordType = 15
	RecordTypeText             RecordType = 16
)

// Known reports whether the type is one of the RFC 1035 codes.
func (t RecordType) Known() bool {
	return t >= RecordTypeAddress && t <= RecordTypeText
}

// Class is a DNS class code.
type Class uint16

const (
	ClassInternet Class = 1
	ClassCSNet    Class = 2
	ClassChaos    Class = 3
	ClassHesiod   Class = 4
)

// Known reports whether the class is one of the RFC 1035 codes.
func (c Class) Known() bool {
	return c >= ClassInternet && c <= ClassHesiod
}

// Question is a single query: a name plus the requested record type and
// class.
type Question struct {
	Name  DomainName
	Type  RecordType
	Class Class
}

// ParseQuestion decodes one question starting at offset. Unknown type or
// class values are preserved, not rejected.
func ParseQuestion(msg []byte, offset int) (Question, int, error) {
	name, offset, err := ParseDomainName(msg, offset)
	if err != nil {
		return Question{}, offset, errors.Wrap(err, "question name")
	}
	if offset+4 > len(msg) {
		return Question{}, offset, errors.Wrap(ErrTruncated, "question type and class")
	}
	q := Question{
		Name:  name,
		Type:  RecordType(binary.BigEndian.Uint16(msg[offset : offset+2])),
		Class: Class(binary.BigEndian.Uint16(msg[offset+2 : offset+4])),
	}
	return q, offset + 4, nil
}

// Encode writes the question in wire order: name, type, class.
func (q Question) Encode(buf *bytes.Buffer) error {
	if err := q.Name.Encode(buf); err != nil {
		return err
	}
	var scratch [2]byte
	binary.BigEndian.PutUint16(scratch[:], uint16(q.Type))
	buf.Write(scratch[:])
	binary.BigEndian.PutUint16(scratch[:], uint16(q.Class))
	buf.Write(scratch[:])
	return nil
}

// Length is the question's on-wire size: the name plus 4 bytes of type
// and class.
func (q Question) Length() int {
	return q.Name.Length() + 4
}

// LabelsFrom returns the name's label suffix starting at the given
// question-relative byte offset. Offsets that do not land exactly on a
// label boundary are rejected: a compression pointer must reference the
// start of a label, never its middle or the trailing terminator.
func (q Question) LabelsFrom(rel int) ([]Label, error) {
	at := 0
	for i, l := range q.Name.Labels {
		if at == rel {
			return q.Name.Labels[i:], nil
		}
		if at > rel {
			break
		}
		at += l.Length()
	}
	return nil, errors.Wrapf(ErrBadPointer, "offset %d is not a label boundary", rel)
}
