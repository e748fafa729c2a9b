package reconcile

import "fmt"

// PipelineError carries the HTTP-equivalent status for each failure class:
//
//	400 malformed request / market misconfiguration
//	404 no Bought events for this market in the receipt
//	409 receipt not yet available (caller should retry)
//	422 logs matched but none decoded (likely ABI mismatch)
//	500 persistence or RPC failure
type PipelineError struct {
	Status  int
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error { return e.Err }

func failf(status int, format string, args ...any) *PipelineError {
	return &PipelineError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func wrap(status int, err error, message string) *PipelineError {
	return &PipelineError{Status: status, Message: message, Err: err}
}
