package probe

import "errors"

// FailureKind classifies why a probe failed.
type FailureKind string

const (
	// FailureTransport means the capability call itself returned an error.
	FailureTransport FailureKind = "transport"
	// FailureMalformed means the call succeeded but its answer could not be interpreted.
	FailureMalformed FailureKind = "malformed_response"
	// FailureLogical means the host answered but reported an unsuccessful result.
	FailureLogical FailureKind = "logical"
)

var (
	errEmptyResponse   = errors.New("empty response")
	errNotAcknowledged = errors.New("not acknowledged")
)

// Failure is the error returned by a probe body.
type Failure struct {
	Kind FailureKind
	Msg  string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Msg
	}

	return f.Msg + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func transportFailure(msg string, err error) *Failure {
	return &Failure{Kind: FailureTransport, Msg: msg, Err: err}
}

func malformedFailure(msg string, err error) *Failure {
	return &Failure{Kind: FailureMalformed, Msg: msg, Err: err}
}

func logicalFailure(msg string) *Failure {
	return &Failure{Kind: FailureLogical, Msg: msg}
}

func notAcknowledged(msg string) *Failure {
	return &Failure{Kind: FailureLogical, Msg: msg, Err: errNotAcknowledged}
}
