package protocol

import (
	"context"
	"time"
)

// NetworkErrorText is the status text of a response that never arrived.
const NetworkErrorText = "Network Error"

// Dispatcher performs one outbound call per Dispatch. Implementations never
// return a transport problem any other way than through Result.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *Request) Result
}

// Request is what a dispatcher needs to issue a call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Response is the normalized outcome of a call.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       any               `json:"data"`
	Time       int64             `json:"time"`
	Size       int64             `json:"size"`

	// Not part of the record shape.
	Raw         []byte        `json:"-"`
	ContentType string        `json:"-"`
	Proto       string        `json:"-"`
	Timing      *TimingDetail `json:"-"`
}

// TimingDetail breaks down where the time of a successful call went.
type TimingDetail struct {
	DNSLookup    time.Duration
	TCPConnect   time.Duration
	TLSHandshake time.Duration
	TTFB         time.Duration
	Transfer     time.Duration
	Total        time.Duration
}

// TransportError wraps the cause of a call that produced no response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Result is either a received response or a transport failure. Response is
// populated in both cases; Err is non-nil only for a failure.
type Result struct {
	Response Response
	Err      error
}

// OK reports whether a response was received.
func (r Result) OK() bool { return r.Err == nil }

// Failure builds the failure-shaped result for err after elapsed.
func Failure(err error, elapsed time.Duration) Result {
	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return Result{
		Response: Response{
			Status:     0,
			StatusText: NetworkErrorText,
			Headers:    map[string]string{},
			Data:       map[string]any{"error": err.Error()},
			Time:       ms,
			Size:       0,
		},
		Err: &TransportError{Err: err},
	}
}

// ErrorMessage returns the failure message carried in Data, if any.
func (r Response) ErrorMessage() (string, bool) {
	m, ok := r.Data.(map[string]any)
	if !ok || r.Status != 0 {
		return "", false
	}
	msg, ok := m["error"].(string)
	return msg, ok
}
