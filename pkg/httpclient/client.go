package httpclient

import (
	"crypto/tls"
	"net/http"
	"os"
	"strings"

	// Packages
	client "github.com/mutablelogic/go-client"
	transfer "github.com/mutablelogic/go-transfer"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Client talks to the storage backend (presign, delete and thumbnail calls)
// and writes object bytes directly to presigned URLs.
type Client struct {
	*client.Client
	endpoint string
}

var _ transfer.Gateway = (*Client)(nil)
var _ transfer.Executor = (*Client)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a new transfer HTTP client with the given base URL and options.
// The url parameter should point to the API prefix under which the storage
// endpoints are mounted, e.g. "http://localhost:8080/api".
func New(url string, opts ...client.ClientOpt) (*Client, error) {
	c := new(Client)
	cl, err := client.New(append(opts, client.OptEndpoint(url))...)
	if err != nil {
		return nil, err
	}
	if isTruthyEnv("TRANSFER_HTTP1") {
		tr, ok := cl.Client.Transport.(*http.Transport)
		if !ok || tr == nil {
			tr = http.DefaultTransport.(*http.Transport)
		}
		tr = tr.Clone()
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
		cl.Client.Transport = tr
	}
	c.Client = cl
	c.endpoint = strings.TrimSuffix(url, "/")
	return c, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Endpoint returns the base URL of the backend API
func (c *Client) Endpoint() string {
	return c.endpoint
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func isTruthyEnv(key string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	return v != "" && v != "0" && v != "false" && v != "no" && v != "off"
}
