package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"pixhistorial/internal/quote"
)

// FailureKind classifies a fetch failure.
type FailureKind int

const (
	// KindConnection means the source was unreachable or refused.
	KindConnection FailureKind = iota
	// KindTimeout means the request exceeded the hard timeout.
	KindTimeout
	// KindProtocol means the source answered with a non-2xx status.
	KindProtocol
	// KindMalformed means the body was not the expected structure.
	KindMalformed
)

func (k FailureKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// FetchError is a classified failure from the rate source.
type FetchError struct {
	Kind       FailureKind
	StatusCode int // set for KindProtocol
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindProtocol {
		return fmt.Sprintf("rate source %s failure: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("rate source %s failure: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient. Protocol and
// malformed-payload failures indicate a stable condition and are not
// worth retrying within one cycle.
func (e *FetchError) Retryable() bool {
	return e.Kind == KindConnection || e.Kind == KindTimeout
}

// Fetch performs a single GET against the quotes API and decodes the
// payload. It never retries.
func (c *Client) Fetch(ctx context.Context) ([]quote.RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Kind:       KindProtocol,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	var entries []quote.RawEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &FetchError{Kind: KindMalformed, Err: err}
	}

	c.logger.Debug("fetched quote payload", "entries", len(entries))
	return entries, nil
}

// classifyTransport maps a transport-level error to connection or
// timeout.
func classifyTransport(err error) *FetchError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	return &FetchError{Kind: KindConnection, Err: err}
}
