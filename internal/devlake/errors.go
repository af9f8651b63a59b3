package devlake

import "fmt"

// RemoteError is the uniform failure kind for DevLake API calls: transport
// errors, non-2xx responses, and malformed bodies all surface as one of
// these. It carries the method, endpoint, and the remote's message, never
// the request payload, which may contain tokens.
type RemoteError struct {
	Method   string
	Endpoint string
	Status   int
	Message  string
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Method, e.Endpoint, e.Message)
}

// InvalidIdentifierError indicates a malformed "owner/repo" or
// "group/project" input string.
type InvalidIdentifierError struct {
	Input string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid repo path %q: use format owner/repo", e.Input)
}

// NotFoundError indicates a repository, group, or project confirmed absent
// after exhausting all lookup paths.
type NotFoundError struct {
	Subject string
	Reason  string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s not found: %s", e.Subject, e.Reason)
	}
	return fmt.Sprintf("%s not found", e.Subject)
}

// MissingCredentialError indicates repositories were listed for a platform
// without a usable connection id or token for it.
type MissingCredentialError struct {
	Plugin string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("either an existing %s connection ID or a token must be provided", e.Plugin)
}
