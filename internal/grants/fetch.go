package grants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
)

// Fetcher is the injected upstream collaborator
// (`fetchGrants: (rawToken) -> JSON`, spec.md §6). Implementations
// must be re-entrant and safe for concurrent use; internal/transport
// supplies the default HTTP-based one.
type Fetcher interface {
	FetchGrants(ctx context.Context, rawToken string) (json.RawMessage, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, rawToken string) (json.RawMessage, error)

// FetchGrants implements Fetcher.
func (f FetcherFunc) FetchGrants(ctx context.Context, rawToken string) (json.RawMessage, error) {
	return f(ctx, rawToken)
}

// HTTPStatusError is the failure shape fetchGrants reports for a
// terminal non-2xx response (spec.md §6: "HttpException{status,
// message}").
type HTTPStatusError struct {
	Status  int
	Message string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("grants fetch: http %d: %s", e.Status, e.Message)
}

// emptyGrants is the deny-all document substituted for a terminal 403.
var emptyGrants = json.RawMessage(`{}`)

// fetchWithRetry applies the retry policy from spec.md §4.4: up to
// httpRetries+1 total attempts, retrying connection errors and any
// non-401/non-403 HTTP status. A 401 or 403 is never retried; 403
// resolves to the empty-grants deny-all document, 401 propagates so
// the caller can purge the offending sessions.
func fetchWithRetry(ctx context.Context, fetcher Fetcher, rawToken string, httpRetries int) (json.RawMessage, error) {
	maxTries := uint(httpRetries) + 1

	op := func() (json.RawMessage, error) {
		grants, err := fetcher.FetchGrants(ctx, rawToken)
		if err == nil {
			return grants, nil
		}

		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			switch statusErr.Status {
			case 401:
				return nil, backoff.Permanent(err)
			case 403:
				return nil, backoff.Permanent(&terminalEmptyGrants{cause: err})
			}
		}

		return nil, err
	}

	grants, err := backoff.Retry(ctx, op, backoff.WithMaxTries(maxTries))
	if err != nil {
		var empty *terminalEmptyGrants
		if errors.As(err, &empty) {
			return emptyGrants, nil
		}
		return nil, err
	}

	return grants, nil
}

// terminalEmptyGrants marks a permanent 403 so fetchWithRetry can
// distinguish "stop retrying and substitute empty grants" from "stop
// retrying and propagate the failure" without inspecting status codes
// twice.
type terminalEmptyGrants struct {
	cause error
}

func (e *terminalEmptyGrants) Error() string { return e.cause.Error() }
func (e *terminalEmptyGrants) Unwrap() error  { return e.cause }
