// Package resolver forwards questions to an upstream DNS server over
// UDP, one question per exchange.
package resolver

import (
	"net"

	"github.com/anycast-dev/dnsrelay/internal/wire"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// maxDatagramSize is the largest reply we accept from the upstream; DNS
// over UDP without EDNS tops out at 512 bytes.
const maxDatagramSize = 512

// Resolver answers questions by relaying them, one at a time, to a fixed
// upstream address. There is no cache, no retry and no deduplication:
// any socket error or malformed upstream reply fails the whole request.
type Resolver struct {
	Upstream string
}

// New returns a resolver forwarding to the given "host:port" address.
func New(upstream string) *Resolver {
	return &Resolver{
		Upstream: upstream,
	}
}

func (r *Resolver) String() string {
	return "udp://" + r.Upstream
}

// Resolve forwards every question of the inbound query and returns the
// accumulated answers in question order. Question names are decompressed
// against the inbound message before forwarding, and every returned
// answer is decompressed against its own upstream reply, so the result
// carries no pointers into either packet.
func (r *Resolver) Resolve(query *wire.Message) ([]wire.ResourceRecord, error) {
	answers := make([]wire.ResourceRecord, 0, len(query.Questions))
	for _, question := range query.Questions {
		name, err := question.Name.Decompress(query)
		if err != nil {
			return nil, errors.Wrapf(err, "question %v", question.Name)
		}

		upstream, err := r.exchange(wire.Question{
			Name:  name,
			Type:  question.Type,
			Class: question.Class,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "forwarding %v to %s", name, r.Upstream)
		}

		for _, answer := range upstream.Answers {
			flat, err := answer.Name.Decompress(upstream)
			if err != nil {
				return nil, errors.Wrapf(err, "answer for %v", name)
			}
			answer.Name = flat
			answers = append(answers, answer)
		}
		log.Debugf("Resolved %v: %d answer(s) from %s", name, len(upstream.Answers), r.Upstream)
	}
	return answers, nil
}

// exchange performs one blocking query/reply round trip for a single
// question.
func (r *Resolver) exchange(question wire.Question) (*wire.Message, error) {
	raw, err := wire.NewQuery([]wire.Question{question}).Encode()
	if err != nil {
		return nil, err
	}

	conn, err := net.Dial("udp", r.Upstream)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warnf("Could not close upstream connection: %v", err)
		}
	}()

	if _, err := conn.Write(raw); err != nil {
		return nil, errors.WithStack(err)
	}

	buf := make([]byte, maxDatagramSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return wire.ParseMessage(buf[:n])
}
