// Package apperrors defines the typed error taxonomy shared by every
// package boundary in my-unicorn. Lower-level operations raise one of
// these kinds; the orchestrator catches per-target and records a failed
// outcome without cancelling its peers.
package apperrors

import "fmt"

// Kind identifies a class of failure for exit-code mapping and recovery
// policy. It is deliberately small and closed: new kinds require a
// conscious decision about recovery behavior.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindRateLimited    Kind = "rate_limited"
	KindHTTP           Kind = "http"
	KindParse          Kind = "parse"
	KindVerification   Kind = "verification"
	KindSelection      Kind = "selection"
	KindConfig         Kind = "config"
	KindAuth           Kind = "auth"
	KindFilesystem     Kind = "filesystem"
	KindLock           Kind = "lock"
	KindAlreadyExists  Kind = "already_exists"
	KindNoTargets      Kind = "no_targets"
	KindUsage          Kind = "usage"
	KindCatalogMissing Kind = "catalog_missing"
)

// Error is a typed, wrapped error carrying a Kind for dispatch plus an
// optional target (app name or owner/repo) for reporting.
type Error struct {
	Kind   Kind
	Target string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Target, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, apperrors.KindX) style matching by comparing
// Kind when the target is also an *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, target, msg string) *Error {
	return &Error{Kind: kind, Target: target, Msg: msg}
}

func Wrap(kind Kind, target string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Target: target, Msg: err.Error(), Err: err}
}

func Wrapf(kind Kind, target, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Target: target, Msg: fmt.Sprintf(format, args...)}
}

// OfKind returns true if err (or any error it wraps) carries the given Kind.
func OfKind(err error, kind Kind) bool {
	var a *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			a = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return a != nil && a.Kind == kind
}

// ExitCode maps a Kind to the process exit code defined in the CLI surface.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	a, ok := err.(*Error)
	if !ok {
		return 1
	}
	switch a.Kind {
	case KindUsage:
		return 2
	case KindNoTargets:
		return 3
	case KindLock:
		return 4
	case KindNetwork, KindRateLimited, KindHTTP:
		return 5
	case KindVerification:
		return 6
	case KindConfig:
		return 7
	default:
		return 1
	}
}
