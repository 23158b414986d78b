package wire

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/pkg/errors"
)

// RData is the type-specific payload of a resource record. Encode writes
// the 2-byte RDLENGTH prefix followed by the payload bytes.
type RData interface {
	Length() uint16
	Encode(buf *bytes.Buffer) error
}

// IPv4 is the RDATA of an address (A) record.
type IPv4 [4]byte

// NewIPv4 converts a parsed address into A-record RDATA. Only IPv4
// addresses fit; anything else is rejected.
func NewIPv4(ip net.IP) (IPv4, error) {
	v4 := ip.To4()
	if v4 == nil {
		return IPv4{}, errors.Errorf("%v is not an IPv4 address", ip)
	}
	var data IPv4
	copy(data[:], v4)
	return data, nil
}

// Length is the RDATA payload size, excluding the length prefix.
func (ip IPv4) Length() uint16 {
	return 4
}

// Encode writes the RDLENGTH prefix and the four address bytes.
func (ip IPv4) Encode(buf *bytes.Buffer) error {
	var scratch [2]byte
	binary.BigEndian.PutUint16(scratch[:], ip.Length())
	buf.Write(scratch[:])
	buf.Write(ip[:])
	return nil
}

func (ip IPv4) String() string {
	return net.IP(ip[:]).String()
}

// ResourceRecord is one entry of the answer, authority or additional
// section.
type ResourceRecord struct {
	Name  DomainName
	Type  RecordType
	Class Class
	// TTL is how many seconds a receiver may cache the record.
	TTL  uint32
	Data RData
}

// NewResourceRecord assembles a record; RDLENGTH is derived from the
// data at encode time, so the two can never disagree.
func NewResourceRecord(name DomainName, ty RecordType, class Class, ttl uint32, data RData) ResourceRecord {
	return ResourceRecord{
		Name:  name,
		Type:  ty,
		Class: class,
		TTL:   ttl,
		Data:  data,
	}
}

// ParseResourceRecord decodes one record starting at offset. Only
// address (A) RDATA has a body codec; records of any other type fail
// with ErrUnsupportedType, which is an implementation gap, not a
// malformed packet.
func ParseResourceRecord(msg []byte, offset int) (ResourceRecord, int, error) {
	name, offset, err := ParseDomainName(msg, offset)
	if err != nil {
		return ResourceRecord{}, offset, errors.Wrap(err, "record name")
	}
	if offset+10 > len(msg) {
		return ResourceRecord{}, offset, errors.Wrap(ErrTruncated, "record type, class, TTL and RDLENGTH")
	}
	r := ResourceRecord{
		Name:  name,
		Type:  RecordType(binary.BigEndian.Uint16(msg[offset : offset+2])),
		Class: Class(binary.BigEndian.Uint16(msg[offset+2 : offset+4])),
		TTL:   binary.BigEndian.Uint32(msg[offset+4 : offset+8]),
	}
	rdlength := int(binary.BigEndian.Uint16(msg[offset+8 : offset+10]))
	offset += 10

	if offset+rdlength > len(msg) {
		return ResourceRecord{}, offset, errors.Wrapf(ErrTruncated, "RDATA of %d bytes", rdlength)
	}

	switch r.Type {
	case RecordTypeAddress:
		if rdlength != 4 {
			return ResourceRecord{}, offset, errors.Wrapf(ErrBadRDLength, "address record with RDLENGTH %d", rdlength)
		}
		var data IPv4
		copy(data[:], msg[offset:offset+4])
		r.Data = data
	default:
		return ResourceRecord{}, offset, errors.Wrapf(ErrUnsupportedType, "record type %d", uint16(r.Type))
	}

	return r, offset + rdlength, nil
}

// Encode writes the record in wire order: name, type, class, TTL, then
// RDATA with its length prefix.
func (r ResourceRecord) Encode(buf *bytes.Buffer) error {
	if err := r.Name.Encode(buf); err != nil {
		return err
	}
	var scratch [4]byte
	binary.BigEndian.PutUint16(scratch[:2], uint16(r.Type))
	buf.Write(scratch[:2])
	binary.BigEndian.PutUint16(scratch[:2], uint16(r.Class))
	buf.Write(scratch[:2])
	binary.BigEndian.PutUint32(scratch[:], r.TTL)
	buf.Write(scratch[:])
	return r.Data.Encode(buf)
}

// Length is the record's on-wire size.
func (r ResourceRecord) Length() int {
	return r.Name.Length() + 10 + int(r.Data.Length())
}
