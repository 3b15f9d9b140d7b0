// Package singleflight implements the per-key admission barrier
// described in spec.md §4.3: at most one caller per key performs the
// work item, and every other caller for that key observes the same
// outcome.
package singleflight

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrService is the sentinel wrapped around any cause that isn't
// already a recognized service-related error, per spec.md §7
// ("Service errors from the single-flight barrier — rewrapped to a
// common service-error kind with cause chain preserved").
var ErrService = errors.New("singleflight: service error")

// Barrier guarantees that at most one execution of Do's work
// function runs per key at any time, and that every concurrent caller
// for that key observes the same result. It is a thin, logging
// wrapper around golang.org/x/sync/singleflight.Group, whose Do
// already implements exactly this contract: the first caller for a
// key runs work and every other caller blocks on the same call and
// shares its result.
type Barrier struct {
	group singleflight.Group
}

// New returns a ready-to-use Barrier.
func New() *Barrier {
	return &Barrier{}
}

// Do runs work for key if no execution is already in flight for that
// key, or waits for and shares the result of the one in flight.
// acquired reports whether this call was the one that actually ran
// work (the "installer"); it is informational only (e.g. for
// metrics/tracing) and does not change Do's return value for losers,
// who still receive the installer's result or error.
func (b *Barrier) Do(ctx context.Context, key string, work func(ctx context.Context) (any, error)) (result any, acquired bool, err error) {
	// singleflight reports shared=true to every caller of a call that had
	// duplicates, the executing one included, so the installer is
	// identified by whether this caller's own closure ran.
	ran := false
	v, _, callErr := b.group.Do(key, func() (any, error) {
		ran = true
		return work(ctx)
	})

	acquired = ran

	if callErr != nil {
		log.Debug().Str("key", key).Bool("acquired", acquired).Err(callErr).Msg("singleflight: call failed")
		return nil, acquired, wrapServiceError(callErr)
	}

	return v, acquired, nil
}

// Forget removes key's entry so the next Do call starts a new epoch
// rather than rejoining a completed (or never-started) call. Callers
// use this after a terminal failure they don't want subsequent
// callers to keep observing once the underlying condition may have
// changed.
func (b *Barrier) Forget(key string) {
	b.group.Forget(key)
}

func wrapServiceError(cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: interrupted: %w", ErrService, cause)
	}
	if errors.Is(cause, ErrService) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrService, cause)
}
