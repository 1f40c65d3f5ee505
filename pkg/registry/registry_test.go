package registry_test

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	// Packages
	transfer "github.com/mutablelogic/go-transfer"
	registry "github.com/mutablelogic/go-transfer/pkg/registry"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_Registry_Default(t *testing.T) {
	assert := assert.New(t)
	assert.Same(registry.Default(), registry.Default())
}

func Test_Registry_Register(t *testing.T) {
	assert := assert.New(t)
	r := registry.New()

	t.Run("Order", func(t *testing.T) {
		assert.NoError(r.Register("form", schema.TransferItem{Key: "a", FileName: "a.png"}))
		assert.NoError(r.Register("form", schema.TransferItem{Key: "b", FileName: "b.pdf"}))
		assert.NoError(r.Register("form", schema.TransferItem{Key: "c", FileName: "c.txt"}))
		assert.Equal([]string{"a", "b", "c"}, r.Snapshot("form").Keys())
	})

	t.Run("ReplaceKeepsPosition", func(t *testing.T) {
		assert.NoError(r.Register("form", schema.TransferItem{Key: "b", FileName: "b2.pdf"}))
		view := r.Snapshot("form")
		assert.Equal([]string{"a", "b", "c"}, view.Keys())
		assert.Equal("b2.pdf", view.Items[1].FileName)
	})

	t.Run("DefaultStatus", func(t *testing.T) {
		item, ok := r.Item("form", "a")
		assert.True(ok)
		assert.Equal(schema.StatusIdle, item.Status)
	})

	t.Run("MissingKey", func(t *testing.T) {
		assert.Error(r.Register("form", schema.TransferItem{}))
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		err := r.Register("form", schema.TransferItem{Key: "x", Status: "bogus"})
		assert.ErrorIs(err, transfer.ErrInvalidTransition)
	})

	t.Run("UnknownForm", func(t *testing.T) {
		view := r.Snapshot("other")
		assert.Equal("other", view.FormID)
		assert.Empty(view.Items)
		assert.NotNil(view.Items)
	})
}

func Test_Registry_Rekey(t *testing.T) {
	assert := assert.New(t)
	r := registry.New()

	require.NoError(t, r.Register("form", schema.TransferItem{Key: "a"}))
	require.NoError(t, r.Register("form", schema.TransferItem{Key: "tmp-1", Status: schema.StatusPresigning}))
	require.NoError(t, r.Register("form", schema.TransferItem{Key: "c"}))

	assert.NoError(r.Rekey("form", "tmp-1", "b"))
	assert.Equal([]string{"a", "b", "c"}, r.Snapshot("form").Keys())
	_, ok := r.Item("form", "tmp-1")
	assert.False(ok)
	item, ok := r.Item("form", "b")
	assert.True(ok)
	assert.Equal("b", item.Key)
	assert.Equal(schema.StatusPresigning, item.Status)

	assert.ErrorIs(r.Rekey("form", "missing", "d"), transfer.ErrUnknownItem)
	assert.Error(r.Rekey("form", "a", "c"))
	assert.NoError(r.Rekey("form", "a", "a"))
}

func Test_Registry_Progress(t *testing.T) {
	assert := assert.New(t)
	r := registry.New()
	require.NoError(t, r.Register("form", schema.TransferItem{Key: "a", Status: schema.StatusUploading}))

	progress := func() int {
		item, _ := r.Item("form", "a")
		return item.Progress
	}

	assert.NoError(r.SetProgress("form", "a", 30))
	assert.Equal(30, progress())
	assert.NoError(r.SetProgress("form", "a", 10))
	assert.Equal(30, progress())
	assert.NoError(r.SetProgress("form", "a", 250))
	assert.Equal(100, progress())
	assert.ErrorIs(r.SetProgress("form", "missing", 10), transfer.ErrUnknownItem)
}

func Test_Registry_ProgressAfterUpload(t *testing.T) {
	assert := assert.New(t)
	r := registry.New()
	require.NoError(t, r.Register("form", schema.TransferItem{Key: "a", Status: schema.StatusUploading}))
	require.NoError(t, r.SetProgress("form", "a", 40))

	var events []schema.Event
	r.Subscribe("form", func(e schema.Event) { events = append(events, e) })

	item := func() schema.TransferItem {
		item, _ := r.Item("form", "a")
		return item
	}

	// A late update from a failed transfer leaves the item alone
	require.NoError(t, r.SetStatus("form", "a", schema.StatusError, "boom"))
	assert.NoError(r.SetProgress("form", "a", 90))
	assert.Equal(40, item().Progress)

	// ...and does not leak into a retry which is still presigning
	require.NoError(t, r.SetStatus("form", "a", schema.StatusPresigning, ""))
	assert.NoError(r.SetProgress("form", "a", 90))
	assert.Equal(0, item().Progress)

	// Once uploading again, progress is accepted
	require.NoError(t, r.SetStatus("form", "a", schema.StatusUploading, ""))
	assert.NoError(r.SetProgress("form", "a", 20))
	assert.Equal(20, item().Progress)

	for _, e := range events {
		assert.NotEqual(90, e.Item.Progress)
	}
}

func Test_Registry_Status(t *testing.T) {
	assert := assert.New(t)
	r := registry.New()
	require.NoError(t, r.Register("form", schema.TransferItem{Key: "a", Status: schema.StatusPresigning}))

	item := func() schema.TransferItem {
		item, _ := r.Item("form", "a")
		return item
	}

	t.Run("InvalidTransition", func(t *testing.T) {
		err := r.SetStatus("form", "a", schema.StatusDeleting, "")
		assert.ErrorIs(err, transfer.ErrInvalidTransition)
		assert.Equal(schema.StatusPresigning, item().Status)
	})

	t.Run("ErrorRecordsMessage", func(t *testing.T) {
		assert.NoError(r.SetStatus("form", "a", schema.StatusError, "boom"))
		assert.Equal(schema.StatusError, item().Status)
		assert.Equal("boom", item().Error)
	})

	t.Run("RetryClearsError", func(t *testing.T) {
		assert.NoError(r.SetStatus("form", "a", schema.StatusPresigning, "ignored"))
		assert.Empty(item().Error)
		assert.Equal(0, item().Progress)
	})

	t.Run("SuccessSetsProgress", func(t *testing.T) {
		assert.NoError(r.SetStatus("form", "a", schema.StatusUploading, ""))
		assert.NoError(r.SetProgress("form", "a", 42))
		assert.NoError(r.SetStatus("form", "a", schema.StatusSuccess, ""))
		assert.Equal(100, item().Progress)
		assert.Empty(item().Error)
	})

	t.Run("DeletingRollback", func(t *testing.T) {
		assert.NoError(r.SetStatus("form", "a", schema.StatusDeleting, ""))
		assert.NoError(r.SetStatus("form", "a", schema.StatusError, ""))
		assert.Equal("unknown error", item().Error)
	})

	t.Run("Unknown", func(t *testing.T) {
		assert.ErrorIs(r.SetStatus("form", "missing", schema.StatusError, "x"), transfer.ErrUnknownItem)
	})
}

func Test_Registry_ViewAndRemove(t *testing.T) {
	assert := assert.New(t)
	r := registry.New()
	require.NoError(t, r.Register("form", schema.TransferItem{Key: "a"}))
	require.NoError(t, r.Register("form", schema.TransferItem{Key: "b"}))

	assert.NoError(r.SetViewURL("form", "a", "http://example.com/a"))
	item, _ := r.Item("form", "a")
	assert.Equal("http://example.com/a", item.ViewURL)
	assert.ErrorIs(r.SetViewURL("form", "missing", "x"), transfer.ErrUnknownItem)

	assert.True(r.Remove("form", "a"))
	assert.False(r.Remove("form", "a"))
	assert.False(r.Remove("other", "b"))
	assert.Equal([]string{"b"}, r.Snapshot("form").Keys())
	assert.ElementsMatch([]string{"form", "other"}, r.Forms())
}

func Test_Registry_Subscribe(t *testing.T) {
	assert := assert.New(t)
	r := registry.New()

	var form, all []schema.Event
	cancel := r.Subscribe("form", func(e schema.Event) {
		// Re-entrant reads must not deadlock
		_ = r.Snapshot(e.FormID)
		form = append(form, e)
	})
	r.Subscribe("", func(e schema.Event) { all = append(all, e) })

	require.NoError(t, r.Register("form", schema.TransferItem{Key: "tmp-1", Status: schema.StatusPresigning}))
	require.NoError(t, r.Rekey("form", "tmp-1", "a"))
	require.NoError(t, r.SetStatus("form", "a", schema.StatusUploading, ""))
	require.NoError(t, r.SetProgress("form", "a", 50))
	require.NoError(t, r.Register("other", schema.TransferItem{Key: "z"}))

	if assert.Len(form, 4) {
		assert.Equal(schema.EventRegister, form[0].Type)
		assert.Equal(schema.EventRekey, form[1].Type)
		assert.Equal("tmp-1", form[1].OldKey)
		assert.Equal("a", form[1].Key)
		assert.Equal(schema.EventStatus, form[2].Type)
		assert.Equal(schema.StatusUploading, form[2].Item.Status)
		assert.Equal(schema.EventProgress, form[3].Type)
		assert.Equal(50, form[3].Item.Progress)
	}
	assert.Len(all, 5)

	cancel()
	r.Remove("form", "a")
	assert.Len(form, 4)
	if assert.Len(all, 6) {
		assert.Equal(schema.EventRemove, all[5].Type)
	}
}

// Concurrent register/remove must keep the order list and the item map in
// lockstep, with no duplicate keys.
func Test_Registry_Lockstep(t *testing.T) {
	r := registry.New()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rnd := rand.New(rand.NewPCG(uint64(w), 0))
			for range 500 {
				key := fmt.Sprint("k", rnd.IntN(20))
				if rnd.IntN(2) == 0 {
					_ = r.Register("form", schema.TransferItem{Key: key})
				} else {
					r.Remove("form", key)
				}
				_ = r.Rekey("form", key, key+"-x")
				r.Remove("form", key+"-x")
			}
		}()
	}
	wg.Wait()

	view := r.Snapshot("form")
	seen := make(map[string]bool)
	for _, item := range view.Items {
		if seen[item.Key] {
			t.Fatalf("duplicate key %q in order", item.Key)
		}
		seen[item.Key] = true
		got, ok := r.Item("form", item.Key)
		if !ok || got.Key != item.Key {
			t.Fatalf("key %q in order but not in items", item.Key)
		}
	}
	for i := range 20 {
		key := fmt.Sprint("k", i)
		if _, ok := r.Item("form", key); ok != seen[key] {
			t.Fatalf("key %q in items but not in order", key)
		}
	}
}
