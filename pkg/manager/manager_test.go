package manager_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	// Packages
	httprouter "github.com/mutablelogic/go-server/pkg/httprouter"
	backend "github.com/mutablelogic/go-transfer/pkg/backend"
	httpclient "github.com/mutablelogic/go-transfer/pkg/httpclient"
	httphandler "github.com/mutablelogic/go-transfer/pkg/httphandler"
	manager "github.com/mutablelogic/go-transfer/pkg/manager"
	registry "github.com/mutablelogic/go-transfer/pkg/registry"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////
// TEST HELPERS

// newTestServer runs the storage endpoints over a file:// bucket in a
// temporary directory and returns a client for them
func newTestServer(t *testing.T) (*httptest.Server, *httpclient.Client) {
	t.Helper()
	router, err := httprouter.NewRouter(context.Background(), http.NewServeMux(), "/", "*", "transfer", "test")
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	b, err := backend.New(context.Background(), "file://test"+t.TempDir(),
		backend.WithPublicURL(srv.URL+"/storage/object"),
		backend.WithSecret("0123456789abcdef0123456789abcdef"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, httphandler.RegisterHandlers(b, router))

	c, err := httpclient.New(srv.URL)
	require.NoError(t, err)
	return srv, c
}

// newTestManager returns a manager with its own registry
func newTestManager(t *testing.T, c manager.Client, opts ...manager.Opt) *manager.Manager {
	t.Helper()
	opts = append([]manager.Opt{
		manager.WithClient(c),
		manager.WithRegistry(registry.New()),
	}, opts...)
	mgr, err := manager.New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE TESTS

func Test_Manager_New(t *testing.T) {
	assert := assert.New(t)
	_, c := newTestServer(t)

	t.Run("WithClient", func(t *testing.T) {
		mgr, err := manager.New(context.TODO(), manager.WithClient(c))
		assert.NoError(err)
		assert.NotNil(mgr)
		assert.Same(registry.Default(), mgr.Registry())
		assert.NoError(mgr.Close())
	})

	t.Run("WithGatewayAndExecutor", func(t *testing.T) {
		mgr, err := manager.New(context.TODO(), manager.WithGateway(c), manager.WithExecutor(c))
		assert.NoError(err)
		assert.NotNil(mgr)
	})

	t.Run("MissingGateway", func(t *testing.T) {
		_, err := manager.New(context.TODO(), manager.WithExecutor(c))
		assert.Error(err)
	})

	t.Run("MissingExecutor", func(t *testing.T) {
		_, err := manager.New(context.TODO(), manager.WithGateway(c))
		assert.Error(err)
	})

	t.Run("NilClient", func(t *testing.T) {
		_, err := manager.New(context.TODO(), manager.WithClient(nil))
		assert.Error(err)
	})

	t.Run("InvalidConcurrency", func(t *testing.T) {
		_, err := manager.New(context.TODO(), manager.WithClient(c), manager.WithConcurrency(-1))
		assert.Error(err)
	})

	t.Run("InvalidThumbnailCache", func(t *testing.T) {
		_, err := manager.New(context.TODO(), manager.WithClient(c), manager.WithThumbnailCache(-1, 0))
		assert.Error(err)
	})
}
