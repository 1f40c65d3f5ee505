package main

import (
	"os"

	// Packages
	client "github.com/mutablelogic/go-client"
	httpclient "github.com/mutablelogic/go-transfer/pkg/httpclient"
	manager "github.com/mutablelogic/go-transfer/pkg/manager"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Client builds a transfer HTTP client from the global flags.
func (g *Globals) Client() (*httpclient.Client, error) {
	opts := []client.ClientOpt{}
	if g.Trace {
		opts = append(opts, client.OptTrace(os.Stderr, false))
	}
	if g.Timeout > 0 {
		opts = append(opts, client.OptTimeout(g.Timeout))
	}
	return httpclient.New(g.Endpoint, opts...)
}

// Manager builds a transfer manager over the client.
func (g *Globals) Manager(opts ...manager.Opt) (*manager.Manager, error) {
	c, err := g.Client()
	if err != nil {
		return nil, err
	}
	return manager.New(g.ctx, append([]manager.Opt{
		manager.WithClient(c),
		manager.WithLogger(g.logger),
	}, opts...)...)
}
