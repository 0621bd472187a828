package analysis

import "fmt"

// UpstreamError indicates the external analysis call itself failed. Whether
// it is worth retrying is decided by the retry wrapper from its message.
type UpstreamError struct {
	Call string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s call failed: %v", e.Call, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ParseError indicates the external call returned output that could not be
// parsed or failed schema validation. Never retryable.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable analysis output: %s", e.Reason)
}
