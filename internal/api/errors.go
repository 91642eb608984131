package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"observatory/internal/jsonutil"
)

// ErrNetwork matches every error caused by the transport rather than by the
// backend's answer. Use errors.Is(err, ErrNetwork).
var ErrNetwork = errors.New("network error")

// maxMessageLen caps how much of a non-JSON error body ends up in a message.
const maxMessageLen = 512

// NetworkError reports a request that never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s", e.Op)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrNetwork) true for every NetworkError.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Error is a non-2xx answer from the backend.
type Error struct {
	StatusCode int
	Range      StatusCodeRange
	// Summary describes what was rejected, e.g. "creating model is rejected by server".
	Summary string
	// Message is what the server said, if anything.
	Message string
}

// Error returns the server-provided message when there is one, otherwise the summary.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Summary
}

// Detail combines summary, status code and server message for logs.
func (e *Error) Detail() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status code = %d)", e.Summary, e.StatusCode)
	}
	return fmt.Sprintf("%s (status code = %d): %s", e.Summary, e.StatusCode, e.Message)
}

// StatusOf returns the HTTP status code carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// MessageFor maps a status range to the summary used when that range is returned.
type MessageFor map[StatusCodeRange]string

// messagesFor builds the usual 4xx/5xx summaries for an operation.
func messagesFor(what string) MessageFor {
	return MessageFor{
		Status4xx: fmt.Sprintf("%s is rejected by server", what),
		Status5xx: "server error",
	}
}

// checkResponse returns nil for 2xx responses and an *Error otherwise.
// The body is consumed on error.
func checkResponse(resp *http.Response, messageFor MessageFor) error {
	scr := StatusCodeRangeOf(resp)
	if scr == Status2xx {
		return nil
	}

	summary, ok := messageFor[scr]
	if !ok {
		summary = scr.String()
	}
	apiErr := &Error{StatusCode: resp.StatusCode, Range: scr, Summary: summary}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Message = fmt.Sprintf("cannot read server message: %s", err)
		return apiErr
	}
	apiErr.Message = parseServerMessage(body)
	return apiErr
}

// decodeJSONResponse decodes a 2xx JSON body into v. An empty body leaves v
// untouched, since several endpoints answer mutations with no content.
func decodeJSONResponse(resp *http.Response, v interface{}, messageFor MessageFor) error {
	if err := checkResponse(resp, messageFor); err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response (status code = %d): %w", resp.StatusCode, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := jsonutil.UnmarshalWithContext(body, v, fmt.Sprintf("unexpected response (status code = %d)", resp.StatusCode)); err != nil {
		return err
	}
	return nil
}

// discardResponse checks the status and drains the body.
func discardResponse(resp *http.Response, messageFor MessageFor) error {
	if err := checkResponse(resp, messageFor); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// parseServerMessage extracts a human message from an error body. JSON bodies
// are searched for "detail", "message" and "error"; anything else is
// returned as text.
func parseServerMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var payload map[string]interface{}
	if err := jsonutil.UnmarshalWithContext(body, &payload, "error body"); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			v, ok := payload[key]
			if !ok || v == nil {
				continue
			}
			if s := jsonutil.GetString(payload, key); s != "" {
				return s
			}
			// FastAPI-style validation errors put a list under "detail".
			if b, err := json.Marshal(v); err == nil {
				return string(b)
			}
		}
	}

	if len(text) > maxMessageLen {
		return text[:maxMessageLen] + "…"
	}
	return text
}
