package server

import (
	"context"

	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/roster"
)

// RosterLoader loads the roster. *roster.Loader satisfies it.
type RosterLoader interface {
	Load(ctx context.Context, src roster.Source) (*roster.Roster, error)
}

// RosterFeed reloads the roster on every call and renders its occasions.
type RosterFeed struct {
	Loader  RosterLoader
	Source  roster.Source
	Builder *engine.CalendarBuilder
}

func (f *RosterFeed) Calendar(ctx context.Context) ([]byte, error) {
	r, err := f.Loader.Load(ctx, f.Source)
	if err != nil {
		return nil, err
	}
	b := f.Builder
	if b == nil {
		b = &engine.CalendarBuilder{}
	}
	return b.Build(r)
}
