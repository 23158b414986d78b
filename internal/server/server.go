// Package server runs the client-facing UDP loop: one datagram in, one
// reply out, strictly one request at a time.
package server

import (
	"fmt"
	"net"
	"strings"

	"github.com/anycast-dev/dnsrelay/internal/resolver"
	"github.com/anycast-dev/dnsrelay/internal/wire"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// maxDatagramSize bounds inbound requests; DNS over UDP without EDNS
// tops out at 512 bytes.
const maxDatagramSize = 512

// staticAnswer is returned for every question when no upstream resolver
// is configured.
var staticAnswer = wire.IPv4{8, 8, 8, 8}

// staticAnswerTTL is the cache lifetime of the fixed answer, in seconds.
const staticAnswerTTL = 60

// Server services DNS requests on a UDP socket. With a Resolver it
// forwards every question upstream; without one it answers each
// question with a fixed A record.
type Server struct {
	Listen   string
	Resolver *resolver.Resolver

	conn net.PacketConn
	done bool
}

// New returns an unstarted server for the given listen address.
func New(listen string, r *resolver.Resolver) *Server {
	return &Server{
		Listen:   listen,
		Resolver: r,
	}
}

func (s *Server) String() string {
	return fmt.Sprintf("udp://%s", s.Listen)
}

// Startup binds the socket and starts the serving loop in the
// background.
func (s *Server) Startup() error {
	conn, err := net.ListenPacket("udp", s.Listen)
	if err != nil {
		return errors.WithStack(err)
	}
	s.conn = conn

	if s.Resolver != nil {
		log.Infof("Starting DNS relay at %s, forwarding to %s", s, s.Resolver)
	} else {
		log.Infof("Starting DNS relay at %s with a static answer", s)
	}

	go s.serve()
	return nil
}

// Shutdown stops the serving loop and closes the socket.
func (s *Server) Shutdown() error {
	s.done = true
	if s.conn == nil {
		return nil
	}
	return errors.WithStack(s.conn.Close())
}

// serve reads datagrams one at a time. A failed request never stops the
// loop; the datagram is dropped or answered with an error code and the
// next read is issued.
func (s *Server) serve() {
	buf := make([]byte, maxDatagramSize)
	for !s.done {
		n, src, err := s.conn.ReadFrom(buf)
		if err != nil {
			if s.done || strings.Contains(err.Error(), "use of closed network connection") {
				break
			}
			log.WithError(err).Errorf("Error reading datagram: %v", err)
			continue
		}

		pkt := make([]byte, n)
		copy(pkt, buf[:n])

		reply, err := s.Handle(pkt)
		if err != nil {
			log.WithError(err).Warnf("Dropping request from %s: %v", src, err)
			continue
		}
		if _, err := s.conn.WriteTo(reply, src); err != nil {
			log.WithError(err).Errorf("Could not reply to %s: %v", src, err)
		}
	}
}

// Handle services a single request buffer and returns the reply bytes.
// It is a pure function of the packet (and, when forwarding, of the
// upstream's replies), which is what makes the server testable without
// a socket.
func (s *Server) Handle(pkt []byte) ([]byte, error) {
	query, err := wire.ParseMessage(pkt)
	if err != nil {
		if wire.IsMalformed(err) {
			return s.errorReply(pkt, err)
		}
		return nil, err
	}

	questions := make([]wire.Question, 0, len(query.Questions))
	for _, q := range query.Questions {
		name, err := q.Name.Decompress(query)
		if err != nil {
			return s.errorReply(pkt, err)
		}
		questions = append(questions, wire.Question{Name: name, Type: q.Type, Class: q.Class})
	}

	var answers []wire.ResourceRecord
	if s.Resolver != nil {
		answers, err = s.Resolver.Resolve(query)
		if err != nil {
			log.WithError(err).Warnf("Upstream resolution failed: %v", err)
			return s.failureReply(query, questions)
		}
	} else {
		for _, q := range questions {
			answers = append(answers, wire.NewResourceRecord(
				q.Name, wire.RecordTypeAddress, wire.ClassInternet, staticAnswerTTL, staticAnswer))
		}
	}

	return wire.NewReply(query, questions, answers).Encode()
}

// errorReply answers a malformed request with a FormatError response
// echoing the packet ID, provided at least the header was readable.
// Otherwise the original error is returned and the datagram dropped.
func (s *Server) errorReply(pkt []byte, cause error) ([]byte, error) {
	header, err := wire.ParseHeader(pkt)
	if err != nil {
		return nil, cause
	}
	reply := &wire.Message{
		Header: wire.Header{
			PacketID:     header.PacketID,
			IsResponse:   true,
			OpCode:       header.OpCode,
			ResponseCode: wire.ResponseCodeFormatError,
		},
	}
	raw, err := reply.Encode()
	if err != nil {
		return nil, cause
	}
	return raw, nil
}

// failureReply reports an upstream failure as SERVFAIL, echoing the
// questions so the client can correlate the reply.
func (s *Server) failureReply(query *wire.Message, questions []wire.Question) ([]byte, error) {
	reply := &wire.Message{
		Header: wire.Header{
			PacketID:      query.Header.PacketID,
			IsResponse:    true,
			OpCode:        query.Header.OpCode,
			ResponseCode:  wire.ResponseCodeServerFailure,
			QuestionCount: uint16(len(questions)),
		},
		Questions: questions,
	}
	return reply.Encode()
}
