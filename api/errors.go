package api

import "fmt"

// RemoteFetchError reports a failed GET on one endpoint: transport error,
// non-2xx status, undecodable body or schema violation. Status is 0 when no
// response was received.
type RemoteFetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *RemoteFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: fetch %s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("api: fetch %s: %v", e.Endpoint, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }
