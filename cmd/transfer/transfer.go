package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	// Packages
	transfer "github.com/mutablelogic/go-transfer"
	manager "github.com/mutablelogic/go-transfer/pkg/manager"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type TransferCommands struct {
	Upload    UploadCommand    `cmd:"" name:"upload" help:"Upload files to a form." group:"TRANSFER"`
	Delete    DeleteCommand    `cmd:"" name:"delete" help:"Delete objects by key." group:"TRANSFER"`
	View      ViewCommand      `cmd:"" name:"view" help:"Print a read URL for a key." group:"TRANSFER"`
	Thumbnail ThumbnailCommand `cmd:"" name:"thumbnail" help:"Fetch the thumbnail of a key." group:"TRANSFER"`
}

type UploadCommand struct {
	Form        string   `name:"form" short:"f" default:"default" help:"Form identifier"`
	Paths       []string `arg:"" name:"path" help:"Local files to upload" type:"existingfile"`
	Concurrency int      `name:"concurrency" short:"c" default:"4" help:"Number of files uploaded at once (0 for no limit)"`
}

type DeleteCommand struct {
	Form   string   `name:"form" short:"f" default:"default" help:"Form identifier"`
	Keys   []string `arg:"" name:"key" help:"Object keys"`
	Strict bool     `name:"strict" help:"Report keys the backend did not confirm as errors"`
}

type ViewCommand struct {
	Key string `arg:"" name:"key" help:"Object key"`
}

type ThumbnailCommand struct {
	Key    string `arg:"" name:"key" help:"Object key"`
	Output string `name:"output" short:"o" help:"Write to file instead of stdout"`
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (cmd *UploadCommand) Run(ctx *Globals) error {
	mgr, err := ctx.Manager(manager.WithConcurrency(cmd.Concurrency))
	if err != nil {
		return err
	}
	defer mgr.Close()

	// Open the files
	files := make([]transfer.File, 0, len(cmd.Paths))
	for _, path := range cmd.Paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		file, err := schema.OpenFile(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	// Report status changes while uploading
	cancel := mgr.Registry().Subscribe(cmd.Form, func(event schema.Event) {
		if event.Type == schema.EventStatus {
			ctx.logger.Debug("status", "file", event.Item.FileName, "key", event.Key, "status", event.Item.Status, "err", event.Item.Error)
		}
	})
	defer cancel()

	// Upload, then print the result even when nothing succeeded
	result, err := mgr.UploadMany(ctx.ctx, cmd.Form, files)
	if result != nil {
		if err := prettyJSON(result); err != nil {
			return err
		}
	}
	return err
}

func (cmd *DeleteCommand) Run(ctx *Globals) error {
	opts := []manager.Opt{}
	if cmd.Strict {
		opts = append(opts, manager.WithStrictDeletion())
	}
	mgr, err := ctx.Manager(opts...)
	if err != nil {
		return err
	}
	defer mgr.Close()

	result, err := mgr.DeleteMany(ctx.ctx, cmd.Form, cmd.Keys)
	if err != nil {
		return err
	}
	return prettyJSON(result)
}

func (cmd *ViewCommand) Run(ctx *Globals) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	url, err := mgr.OpenView(ctx.ctx, "", cmd.Key)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

func (cmd *ThumbnailCommand) Run(ctx *Globals) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	thumb, err := mgr.FetchThumbnail(ctx.ctx, cmd.Key)
	if err != nil {
		return err
	}
	defer mgr.ReleaseThumbnail(thumb.Handle)
	data, _, ok := mgr.ResolveThumbnail(thumb.Handle)
	if !ok {
		return fmt.Errorf("thumbnail %q released", thumb.Handle)
	}

	// Write the thumbnail
	if cmd.Output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(cmd.Output, data, 0o644); err != nil {
		return err
	}
	return prettyJSON(thumb)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func prettyJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
