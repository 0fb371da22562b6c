package source

import "fmt"

// AuthError reports bad credentials or a login response missing the expected
// session artifact. Fatal for the run, no retry.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "auth: " + e.Reason + ": " + e.Err.Error()
	}

	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Kind() string { return "auth" }

// StructureError reports an expected page or column marker being absent.
// Ambiguous partial structure must not be treated as "no data", so adapters
// raise this instead of returning an empty record set.
type StructureError struct {
	Marker string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure: expected marker %q not found", e.Marker)
}

func (e *StructureError) Kind() string { return "structure" }

// DecodeError reports an encoding or parse failure while reading a payload.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return "decode " + e.Name + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Kind() string { return "decode" }
