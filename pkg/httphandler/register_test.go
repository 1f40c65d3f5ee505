package httphandler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	// Packages
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httprouter "github.com/mutablelogic/go-server/pkg/httprouter"
	jsonschema "github.com/mutablelogic/go-server/pkg/jsonschema"
	backend "github.com/mutablelogic/go-transfer/pkg/backend"
	httphandler "github.com/mutablelogic/go-transfer/pkg/httphandler"
)

///////////////////////////////////////////////////////////////////////////////
// MOCK ROUTER

type mockRouter struct {
	paths  []string
	items  map[string]httprequest.PathItem
	retErr error
}

func (m *mockRouter) RegisterPath(path string, params *jsonschema.Schema, pathitem httprequest.PathItem) error {
	if m.items == nil {
		m.items = make(map[string]httprequest.PathItem)
	}
	m.paths = append(m.paths, path)
	m.items[path] = pathitem
	return m.retErr
}

///////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_RegisterHandlers(t *testing.T) {
	b, err := backend.New(context.Background(), "mem://test", backend.WithPublicURL("http://localhost/storage/object"))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer b.Close()

	router := &mockRouter{}
	if err := httphandler.RegisterHandlers(b, router); err != nil {
		t.Fatalf("RegisterHandlers: %v", err)
	}

	// presign, delete, thumbnail and the signed object endpoint
	if len(router.paths) != 4 {
		t.Errorf("expected 4 registered paths, got %d: %v", len(router.paths), router.paths)
	}
	for path, item := range router.items {
		if item.Handler() == nil {
			t.Errorf("expected a handler for %q", path)
		}
		if spec := item.Spec(path, nil); spec == nil {
			t.Errorf("expected an OpenAPI path item for %q", path)
		}
	}
	object := router.items["storage/object"]
	if object == nil {
		t.Fatal("expected storage/object to be registered")
	}
	spec := object.Spec("storage/object", nil)
	if spec.Get == nil || spec.Head == nil || spec.Put == nil || spec.Post != nil {
		t.Error("expected storage/object to document GET, HEAD and PUT only")
	}
}

func Test_RegisterHandlers_routerError(t *testing.T) {
	b, err := backend.New(context.Background(), "mem://test", backend.WithPublicURL("http://localhost/storage/object"))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer b.Close()

	router := &mockRouter{retErr: fmt.Errorf("router error")}
	if err := httphandler.RegisterHandlers(b, router); err == nil {
		t.Fatal("expected error when router.RegisterPath fails, got nil")
	}
}

func Test_RegisterHandlers_prefix(t *testing.T) {
	ctx := context.Background()
	b, err := backend.New(ctx, "mem://test", backend.WithPublicURL("http://localhost/api/storage/object"))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer b.Close()

	router, err := httprouter.NewRouter(ctx, http.NewServeMux(), "/api", "*", "transfer", "test")
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if err := httphandler.RegisterHandlers(b, router); err != nil {
		t.Fatalf("RegisterHandlers: %v", err)
	}

	// Registering twice conflicts on the same patterns
	if err := httphandler.RegisterHandlers(b, router); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
