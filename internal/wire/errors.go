package wire

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Parse and encode failures fall into three families. Malformed input is
// recoverable and caller-visible; unsupported features are implementation
// gaps that must never masquerade as bad packets; ErrBadEnum is a
// configuration error on the encoding side.
var (
	// ErrTruncated means the buffer ran out before a fixed-size field
	// or a counted section was satisfied.
	ErrTruncated = stderrors.New("truncated message")

	// ErrLabelTooLong means a label length byte exceeded 63 outside of
	// compression-pointer form.
	ErrLabelTooLong = stderrors.New("label exceeds 63 bytes")

	// ErrBadPointer means a compression pointer does not resolve to a
	// label boundary within the question section.
	ErrBadPointer = stderrors.New("bad compression pointer")

	// ErrBadRDLength means the RDATA length prefix does not match the
	// record type's fixed layout.
	ErrBadRDLength = stderrors.New("bad RDATA length")

	// ErrCompressedName means a name still containing a pointer label
	// was handed to the encoder. Encode only accepts literal labels.
	ErrCompressedName = stderrors.New("cannot encode a compressed name")

	// ErrUnsupportedType means the record type has no RDATA codec.
	ErrUnsupportedType = stderrors.New("unsupported record type")

	// ErrBadEnum means a header field holds a value that cannot be
	// represented on the wire.
	ErrBadEnum = stderrors.New("field value out of range")
)

// IsMalformed reports whether err describes bad bytes on the wire, as
// opposed to a feature this codec does not implement.
func IsMalformed(err error) bool {
	switch errors.Cause(err) {
	case ErrTruncated, ErrLabelTooLong, ErrBadPointer, ErrBadRDLength:
		return true
	}
	return false
}

// IsUnsupported reports whether err marks an implementation gap rather
// than malformed input.
func IsUnsupported(err error) bool {
	switch errors.Cause(err) {
	case ErrCompressedName, ErrUnsupportedType:
		return true
	}
	return false
}
