package reconcile

import "fmt"

// MalformedGroupError reports an event group whose shape breaks an identity
// invariant: no root or several roots in a series, mixed series UIDs, duplicate
// record ids, or an exception without exactly one matching instance.
type MalformedGroupError struct {
	Key    string
	Reason string
}

func (e *MalformedGroupError) Error() string {
	return fmt.Sprintf("malformed event group %q: %s", e.Key, e.Reason)
}

// CommunicationError wraps a failure talking to a source or destination service.
type CommunicationError struct {
	// Op names the failed remote operation, e.g. "gcal.insert".
	Op  string
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}
