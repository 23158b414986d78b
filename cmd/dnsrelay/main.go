package main

import (
	"fmt"
	"os"
	"path"

	"github.com/anycast-dev/dnsrelay/internal/args"
	"github.com/anycast-dev/dnsrelay/internal/commands/serve"
	"github.com/anycast-dev/dnsrelay/internal/commands/version"
	drFlags "github.com/anycast-dev/dnsrelay/internal/flags"
	"github.com/anycast-dev/dnsrelay/internal/util"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	// ErrConfigFileDoesNotExist is raised when the configuration file cannot be found
	ErrConfigFileDoesNotExist = flags.ErrInvalidTag + 1
)

// DnsRelay is the main executable
type DnsRelay struct {
	parser *flags.Parser
}

// NewDnsRelay creates a new instance of DnsRelay and initializes the parser
func NewDnsRelay() *DnsRelay {
	executableFilename := os.Args[0]
	executablePath := path.Base(executableFilename)

	dr := &DnsRelay{
		parser: flags.NewNamedParser(executablePath, flags.HelpFlag|flags.PrintErrors),
	}

	dr.setupGeneral()
	dr.setupVersion()
	dr.setupServe()

	return dr
}

// setupGeneral configures the general options
func (dr *DnsRelay) setupGeneral() {
	if _, err := dr.parser.AddGroup("General", "General options", &args.General); err != nil {
		err = errors.WithStack(err)
		util.MustErrorNilOrExit(err)
	}
}

// setupVersion adds the `version` command
func (dr *DnsRelay) setupVersion() {
	cmd := &version.Command{}
	_, err := dr.parser.AddCommand(
		"version",
		"Print the version",
		"Print the application version and exit",
		cmd,
	)
	util.MustErrorNilOrExit(err)
}

// setupServe adds the `serve` command
func (dr *DnsRelay) setupServe() {
	cmd := serve.NewCommand()
	_, err := dr.parser.AddCommand(
		"serve",
		"Run the DNS relay",
		"Listen for DNS queries over UDP and answer or forward them",
		cmd,
	)
	util.MustErrorNilOrExit(err)
}

// main starts dnsrelay and reads the configuration file
func main() {

	dnsRelay := NewDnsRelay()
	args.General.ConfigurationFile = func(file string) error {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			message := fmt.Sprintf("Configuration file %s does not exist.", file)
			util.MustErrorNilOrExit(&flags.Error{
				Type:    ErrConfigFileDoesNotExist,
				Message: message,
			})
		}

		yamlParser := drFlags.NewYamlParser(dnsRelay.parser)

		args.General.ConfigurationFilePath = file
		return yamlParser.ParseFile(file)
	}

	_, err := dnsRelay.parser.Parse()
	util.MustErrorNilOrExit(err)

}
