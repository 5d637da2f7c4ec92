// Package werrors defines the uniform structured error type returned by
// every public WarpGraph API.
//
// Every stable error code (schema mismatches, ref-CAS conflicts,
// sync-auth rejections, and so on) is a sentinel
// constructed with [New] and compared with [errors.Is]. Call sites that
// need to attach a cause use [Wrap]; structured context (writer, graph,
// commit) is attached with [Error.With].
package werrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a stable, machine-comparable error code as named in the
// specification's error taxonomy.
type Code string

const (
	// Usage
	ECancelled     Code = "E_CANCELED"
	EUsage         Code = "E_USAGE"
	ENotImplemented Code = "E_NOT_IMPLEMENTED"

	// Not found
	ENotFound     Code = "E_NOT_FOUND"
	ENodeNotFound Code = "E_NODE_NOT_FOUND"

	// Schema
	ESchemaMismatch     Code = "E_SCHEMA_MISMATCH"
	ETrustSchemaInvalid Code = "E_TRUST_SCHEMA_INVALID"
	ETrustPolicyReserved Code = "E_TRUST_POLICY_RESERVED"
	ETrustPinInvalid    Code = "E_TRUST_PIN_INVALID"

	// Concurrency
	ERefConflict        Code = "E_REF_CONFLICT"
	ETrustRefConflict   Code = "E_TRUST_REF_CONFLICT"
	ETrustEpochRegression Code = "E_TRUST_EPOCH_REGRESSION"

	// State
	ENoState  Code = "E_NO_STATE"
	EQuery    Code = "E_QUERY"

	// Auth (sync protocol)
	EMissingAuth      Code = "MISSING_AUTH"
	EInvalidVersion   Code = "INVALID_VERSION"
	EMalformedHeader  Code = "MALFORMED_HEADER"
	EExpired          Code = "EXPIRED"
	EReplay           Code = "REPLAY"
	EUnknownKeyID     Code = "UNKNOWN_KEY_ID"
	EInvalidSignature Code = "INVALID_SIGNATURE"
	EForbiddenWriter  Code = "FORBIDDEN_WRITER"

	// Internal
	EInternal Code = "E_INTERNAL"
)

// Error is the uniform error type. It formats as "<code>: <message>
// (key=value ...)" and is usable with errors.Is/errors.As: two *Error
// values compare equal under errors.Is when their Code matches, regardless
// of message or fields, which lets call sites test for a sentinel without
// caring about the human message.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

// New constructs a sentinel error for the given code with a human message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an error of the given code that wraps an underlying
// cause, preserving it for errors.Unwrap/errors.As.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// With returns a copy of e with the given structured field attached.
// Safe to chain: err.With("writer", w).With("graph", g).
func (e *Error) With(key, value string) *Error {
	cp := *e
	cp.Fields = make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	cp.Fields[key] = value
	return &cp
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err.Error())
	}
	if suffix := e.fieldSuffix(); suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}
	return b.String()
}

func (e *Error) fieldSuffix() string {
	if len(e.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, e.Fields[k]))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes errors.Is(err, werrors.New(code, "")) match any *Error sharing
// the same Code, so call sites can test sentinels without string-matching
// messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the Code of err if it is (or wraps) a *Error, else "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
