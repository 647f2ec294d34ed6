package publish

import "fmt"

// TransferError reports a failed mandatory remote operation.
type TransferError struct {
	Op   string // connect, cwd, stor, rename, size, retr
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("transfer failed: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transfer failed: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IntegrityError reports that the published object does not match the
// local file after the rename. The object has been deleted unless Stale is set.
type IntegrityError struct {
	Path        string
	Remote      int64
	Local       int64
	RemoteKnown bool  // false when the remote size could not be read
	Stale       bool  // the suspect object could not be removed
	Err         error // size query failure, if any
}

func (e *IntegrityError) Error() string {
	remote := "unknown"
	if e.RemoteKnown {
		remote = fmt.Sprintf("%d", e.Remote)
	}
	msg := fmt.Sprintf("size mismatch: %s remote=%s local=%d", e.Path, remote, e.Local)
	if e.Stale {
		msg += " (remote copy could not be removed)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Unwrap() error { return e.Err }
