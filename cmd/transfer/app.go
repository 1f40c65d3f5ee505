package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Packages
	kong "github.com/alecthomas/kong"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Globals struct {
	Endpoint string        `env:"TRANSFER_ENDPOINT" default:"http://localhost:8080/api" help:"Service endpoint"`
	Timeout  time.Duration `env:"TRANSFER_TIMEOUT" default:"30s" help:"Client request timeout"`
	Debug    bool          `help:"Enable debug output"`
	Trace    bool          `help:"Enable trace output of HTTP requests"`
	JSON     bool          `name:"json" help:"Write logs as JSON"`

	vars   kong.Vars `kong:"-"` // Variables for kong
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func NewApp(app Globals, vars kong.Vars) (*Globals, error) {
	// Set the vars
	app.vars = vars

	// Create the logger
	level := slog.LevelInfo
	if app.Debug || app.Trace {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if app.JSON {
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	} else {
		app.logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	// Create the context
	// This context is cancelled when the process receives a SIGINT or SIGTERM
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Return the app
	return &app, nil
}

func (app *Globals) Close() error {
	app.cancel()
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// METHODS

func (app *Globals) Context() context.Context {
	return app.ctx
}

func (app *Globals) Logger() *slog.Logger {
	return app.logger
}
