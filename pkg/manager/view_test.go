package manager_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	// Packages
	transfer "github.com/mutablelogic/go-transfer"
	manager "github.com/mutablelogic/go-transfer/pkg/manager"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////
// VIEW TESTS

func Test_View_URL(t *testing.T) {
	assert := assert.New(t)
	_, c := newTestServer(t)
	mgr := newTestManager(t, c)
	ctx := context.Background()

	uploaded, err := mgr.UploadOne(ctx, "form", schema.NewFile("a.txt", "text/plain", []byte("hello")))
	require.NoError(t, err)

	t.Run("Registered", func(t *testing.T) {
		url, err := mgr.GetViewURL(ctx, "form", uploaded.Key)
		require.NoError(t, err)
		item, _ := mgr.Registry().Item("form", uploaded.Key)
		assert.Equal(url, item.ViewURL)

		// The url resolves to the object
		resp, err := http.Get(url)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(http.StatusOK, resp.StatusCode)
		data, err := io.ReadAll(resp.Body)
		assert.NoError(err)
		assert.Equal("hello", string(data))
	})

	t.Run("NotRegistered", func(t *testing.T) {
		// A key loaded from a stored record is viewable in any form
		url, err := mgr.GetViewURL(ctx, "other", uploaded.Key)
		assert.NoError(err)
		assert.NotEmpty(url)
		assert.Empty(mgr.Snapshot("other").Items)
	})

	t.Run("OpenView", func(t *testing.T) {
		before, _ := mgr.Registry().Item("form", uploaded.Key)
		url, err := mgr.OpenView(ctx, "form", uploaded.Key)
		assert.NoError(err)
		assert.NotEmpty(url)
		after, _ := mgr.Registry().Item("form", uploaded.Key)
		assert.Equal(before, after)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := mgr.GetViewURL(ctx, "form", "unknown.txt")
		assert.ErrorIs(err, transfer.ErrCredential)
	})
}

////////////////////////////////////////////////////////////////////////////////
// THUMBNAIL TESTS

func Test_View_Thumbnail(t *testing.T) {
	assert := assert.New(t)
	_, c := newTestServer(t)
	mgr := newTestManager(t, c)
	ctx := context.Background()

	uploaded, err := mgr.UploadOne(ctx, "form", schema.NewFile("a.png", "image/png", pngImage(t, 32, 32)))
	require.NoError(t, err)

	// Each fetch gets its own handle
	one, err := mgr.FetchThumbnail(ctx, uploaded.Key)
	require.NoError(t, err)
	two, err := mgr.FetchThumbnail(ctx, uploaded.Key)
	require.NoError(t, err)
	assert.NotEqual(one.Handle, two.Handle)
	assert.Equal(uploaded.Key, one.Key)
	assert.Equal("image/jpeg", one.ContentType)

	data, contentType, ok := mgr.ResolveThumbnail(one.Handle)
	assert.True(ok)
	assert.Equal("image/jpeg", contentType)
	assert.Len(data, one.Size)

	// Release invalidates one handle only
	assert.True(mgr.ReleaseThumbnail(one.Handle))
	assert.False(mgr.ReleaseThumbnail(one.Handle))
	_, _, ok = mgr.ResolveThumbnail(one.Handle)
	assert.False(ok)
	_, _, ok = mgr.ResolveThumbnail(two.Handle)
	assert.True(ok)
}

// Scenario D: a key without a preview does not affect its siblings
func Test_View_Thumbnails(t *testing.T) {
	assert := assert.New(t)
	_, c := newTestServer(t)
	mgr := newTestManager(t, c)
	ctx := context.Background()

	result, err := mgr.UploadMany(ctx, "form", []transfer.File{
		schema.NewFile("a.png", "image/png", pngImage(t, 32, 32)),
		schema.NewFile("b.txt", "text/plain", []byte("no preview")),
		schema.NewFile("c.png", "image/png", pngImage(t, 64, 16)),
	})
	require.NoError(t, err)
	keys := result.Keys()

	thumbs := mgr.FetchThumbnails(ctx, keys)
	require.Len(t, thumbs, 3)
	for i, thumb := range thumbs {
		assert.Equal(keys[i], thumb.Key)
	}
	assert.NoError(thumbs[0].Err)
	assert.NotEmpty(thumbs[0].Handle)
	assert.ErrorIs(thumbs[1].Err, transfer.ErrNotFound)
	var notFound *transfer.NotFoundError
	assert.True(errors.As(thumbs[1].Err, &notFound))
	assert.Empty(thumbs[1].Handle)
	assert.NoError(thumbs[2].Err)
	assert.NotEmpty(thumbs[2].Handle)
}

func Test_View_ThumbnailEviction(t *testing.T) {
	assert := assert.New(t)
	_, c := newTestServer(t)
	mgr := newTestManager(t, c, manager.WithThumbnailCache(1, time.Minute))
	ctx := context.Background()

	uploaded, err := mgr.UploadOne(ctx, "form", schema.NewFile("a.png", "image/png", pngImage(t, 8, 8)))
	require.NoError(t, err)

	// The store holds one handle, so the second fetch evicts the first
	one, err := mgr.FetchThumbnail(ctx, uploaded.Key)
	require.NoError(t, err)
	two, err := mgr.FetchThumbnail(ctx, uploaded.Key)
	require.NoError(t, err)
	_, _, ok := mgr.ResolveThumbnail(one.Handle)
	assert.False(ok)
	_, _, ok = mgr.ResolveThumbnail(two.Handle)
	assert.True(ok)

	// Close releases everything
	assert.NoError(mgr.Close())
	_, _, ok = mgr.ResolveThumbnail(two.Handle)
	assert.False(ok)
}
