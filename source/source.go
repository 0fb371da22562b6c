package source

import "context"

// RawRecord is one record as produced by an adapter: an adapter-defined field
// name to raw value mapping. Which keys are present is adapter-specific; absent
// optional fields simply have no key and render as null downstream.
type RawRecord map[string]any

// Session is the opaque artifact Authenticate produces. It is created once per
// job run and threaded explicitly through every subsequent adapter call, never
// kept in package state.
type Session struct {
	// cookies captured from a login response
	Cookies map[string]string
	// bearer-style API secret
	Token string
}

// Source is the minimum every adapter implements.
type Source interface {
	Authenticate(ctx context.Context) (*Session, error)
}

// UnitLister is implemented by adapters that discover their units remotely,
// such as listing order ids for a date range.
type UnitLister interface {
	ListUnits(ctx context.Context, s *Session) ([]string, error)
}

// UnitFetcher fetches the records of a single unit.
type UnitFetcher interface {
	FetchUnit(ctx context.Context, s *Session, unit string) ([]RawRecord, error)
}

// Fetcher is for whole-dataset sources that return everything in one call.
type Fetcher interface {
	Fetch(ctx context.Context, s *Session) ([]RawRecord, error)
}

// NoAuth is a Source for inputs that need no credentials (local files,
// views-only runs).
type NoAuth struct{}

func (NoAuth) Authenticate(ctx context.Context) (*Session, error) {
	return &Session{}, nil
}
