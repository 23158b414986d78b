package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/anycast-dev/dnsrelay/internal/logging"
	"github.com/anycast-dev/dnsrelay/internal/resolver"
	"github.com/anycast-dev/dnsrelay/internal/server"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Command runs one UDP listener per --listen address, all forwarding to
// the same upstream resolver when one is configured.
type Command struct {
	Listen   []string `json:"listen"   short:"L" long:"listen"   env:"LISTEN" env-delim:" " default:"127.0.0.1:2053" description:"UDP address to listen on. May be given multiple times."`
	Upstream string   `json:"resolver" short:"r" long:"resolver" env:"RESOLVER"             description:"Upstream resolver address ('host:port'). When unset, every question is answered with a fixed A record."`

	servers []*server.Server
}

func NewCommand() *Command {
	return &Command{}
}

// Startup brings up every listener; the first failure tears the command
// down.
func (c *Command) Startup() error {
	var res *resolver.Resolver
	if c.Upstream != "" {
		res = resolver.New(c.Upstream)
	}

	for _, listen := range c.Listen {
		srv := server.New(listen, res)
		if err := srv.Startup(); err != nil {
			return errors.Wrapf(err, "could not start %v", srv)
		}
		c.servers = append(c.servers, srv)
	}
	return nil
}

// Shutdown stops every listener, collecting all failures instead of
// aborting on the first.
func (c *Command) Shutdown() error {
	var errs error

	log.Infof("Graceful server shutdown...")
	for _, srv := range c.servers {
		log.Debugf("[Server] Shutting down %v", srv)
		if err := srv.Shutdown(); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "Could not shutdown %v", srv))
		}
	}

	return errs
}

func (c *Command) Execute(args []string) error {
	logging.SetupLogging()

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	if err := c.Startup(); err != nil {
		return err
	}

	<-interrupted
	return c.Shutdown()
}
