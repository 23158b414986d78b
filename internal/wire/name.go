package wire

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

const (
	// maxLabelLength is the largest literal label the wire format can
	// express: the top two bits of the length byte are reserved for
	// compression pointers.
	maxLabelLength = 63

	// pointerMask marks a length byte as the first half of a 2-byte
	// compression pointer.
	pointerMask = 0xC0

	// maxPointerJumps bounds pointer chasing so a malicious message
	// cannot send decompression around in circles.
	maxPointerJumps = 5
)

// Label is one element of a domain name: either a literal value of at
// most 63 bytes, or a compression pointer to a label sequence starting
// at a message-absolute byte offset. A pointer, when present, is always
// the final label of a name.
type Label struct {
	Value   string
	Offset  uint16
	Pointer bool
}

// Length is the on-wire cost of the label: 2 bytes for a pointer, the
// length prefix plus the value bytes otherwise. The name terminator is
// accounted for by DomainName.Length, not here.
func (l Label) Length() int {
	if l.Pointer {
		return 2
	}
	return len(l.Value) + 1
}

func (l Label) String() string {
	if l.Pointer {
		return "@" + strconv.Itoa(int(l.Offset))
	}
	return l.Value
}

// DomainName is an ordered sequence of labels.
type DomainName struct {
	Labels []Label
}

// NewDomainName builds a name from its dotted textual form, normalizing
// it to ASCII first so non-ASCII input becomes valid wire data.
func NewDomainName(name string) (DomainName, error) {
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return DomainName{}, errors.Wrapf(err, "cannot normalize %q", name)
	}
	ascii = strings.TrimSuffix(ascii, ".")

	var labels []Label
	for _, part := range strings.Split(ascii, ".") {
		if part == "" {
			continue
		}
		if len(part) > maxLabelLength {
			return DomainName{}, errors.Wrapf(ErrLabelTooLong, "label %q", part)
		}
		labels = append(labels, Label{Value: part})
	}
	return DomainName{Labels: labels}, nil
}

// ParseDomainName decodes a name starting at offset. The cursor runs
// over the entire message buffer, not a sub-slice, because a pointer's
// target offset is message-absolute. Returns the name and the offset of
// the first byte past it.
func ParseDomainName(msg []byte, offset int) (DomainName, int, error) {
	var labels []Label
	for {
		if offset >= len(msg) {
			return DomainName{}, offset, errors.Wrap(ErrTruncated, "domain name")
		}
		b := msg[offset]
		offset++

		switch {
		case b == 0:
			return DomainName{Labels: labels}, offset, nil

		case b&pointerMask == pointerMask:
			// The low 6 bits of this byte and all of the next one form a
			// 14-bit message-absolute offset. Compression never resumes
			// literal labels after a pointer, so the name ends here.
			if offset >= len(msg) {
				return DomainName{}, offset, errors.Wrap(ErrTruncated, "compression pointer")
			}
			target := uint16(b&^byte(pointerMask))<<8 | uint16(msg[offset])
			offset++
			labels = append(labels, Label{Offset: target, Pointer: true})
			return DomainName{Labels: labels}, offset, nil

		case b > maxLabelLength:
			return DomainName{}, offset, errors.Wrapf(ErrLabelTooLong, "length byte %d", b)

		default:
			end := offset + int(b)
			if end > len(msg) {
				return DomainName{}, offset, errors.Wrapf(ErrTruncated, "label of %d bytes", b)
			}
			labels = append(labels, Label{Value: string(msg[offset:end])})
			offset = end
		}
	}
}

// Encode writes the name as length-prefixed labels followed by a zero
// terminator. Names that still contain a pointer label cannot be
// encoded; decompress them first.
func (n DomainName) Encode(buf *bytes.Buffer) error {
	for _, l := range n.Labels {
		if l.Pointer {
			return errors.Wrapf(ErrCompressedName, "pointer to offset %d", l.Offset)
		}
		if len(l.Value) > maxLabelLength {
			return errors.Wrapf(ErrLabelTooLong, "label %q", l.Value)
		}
		buf.WriteByte(byte(len(l.Value)))
		buf.WriteString(l.Value)
	}
	buf.WriteByte(0)
	return nil
}

// Length is the encoded size of the name in bytes. A terminal pointer
// costs exactly 2 bytes and replaces the zero terminator.
func (n DomainName) Length() int {
	total := 0
	for _, l := range n.Labels {
		if l.Pointer {
			return total + 2
		}
		total += l.Length()
	}
	return total + 1
}

// Decompress returns a copy of the name with every label materialized as
// a literal, resolving any terminal pointer against msg. The name must
// have been parsed out of that same message: pointer offsets are only
// meaningful within their enclosing packet.
func (n DomainName) Decompress(msg *Message) (DomainName, error) {
	out := DomainName{Labels: make([]Label, 0, len(n.Labels))}
	pending := n.Labels
	jumps := 0
	for len(pending) > 0 {
		l := pending[0]
		pending = pending[1:]
		if !l.Pointer {
			out.Labels = append(out.Labels, l)
			continue
		}
		jumps++
		if jumps > maxPointerJumps {
			return DomainName{}, errors.Wrapf(ErrBadPointer, "more than %d compression jumps", maxPointerJumps)
		}
		tail, err := msg.LabelsAt(l.Offset)
		if err != nil {
			return DomainName{}, err
		}
		pending = tail
	}
	return out, nil
}

// String renders the name in dotted form. Unresolved pointers show up
// as "@offset".
func (n DomainName) String() string {
	parts := make([]string, 0, len(n.Labels))
	for _, l := range n.Labels {
		parts = append(parts, l.String())
	}
	return strings.Join(parts, ".")
}
