// Package generror defines the failure kinds of the binding post-processing
// pipeline. Every kind is terminal for the invocation that produced it.
package generror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindGeneratorFailure Kind = iota + 1
	KindParseFailure
	KindHelperShapeUnsupported
	KindNameCollision
	KindWriteFailure
)

func (k Kind) String() string {
	switch k {
	case KindGeneratorFailure:
		return "generator failure"
	case KindParseFailure:
		return "parse failure"
	case KindHelperShapeUnsupported:
		return "helper shape unsupported"
	case KindNameCollision:
		return "name collision"
	case KindWriteFailure:
		return "write failure"
	default:
		return "unknown failure"
	}
}

// Sentinels for errors.Is matching on the kind alone.
var (
	ErrGeneratorFailure       = &Error{Kind: KindGeneratorFailure}
	ErrParseFailure           = &Error{Kind: KindParseFailure}
	ErrHelperShapeUnsupported = &Error{Kind: KindHelperShapeUnsupported}
	ErrNameCollision          = &Error{Kind: KindNameCollision}
	ErrWriteFailure           = &Error{Kind: KindWriteFailure}
)

// Error carries the kind plus enough context (declaration, file) to diagnose it.
type Error struct {
	Kind Kind
	Decl string
	File string
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Decl != "" {
		fmt.Fprintf(&sb, " in %q", e.Decl)
	}
	if e.File != "" {
		fmt.Fprintf(&sb, " (%s)", e.File)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func GeneratorFailure(file string, err error) *Error {
	return &Error{Kind: KindGeneratorFailure, File: file, Err: err}
}

func ParseFailure(file string, err error) *Error {
	return &Error{Kind: KindParseFailure, File: file, Err: err}
}

func HelperShapeUnsupported(decl, format string, args ...any) *Error {
	return &Error{Kind: KindHelperShapeUnsupported, Decl: decl, Err: fmt.Errorf(format, args...)}
}

func NameCollision(decl, format string, args ...any) *Error {
	return &Error{Kind: KindNameCollision, Decl: decl, Err: fmt.Errorf(format, args...)}
}

func WriteFailure(file string, err error) *Error {
	return &Error{Kind: KindWriteFailure, File: file, Err: err}
}
