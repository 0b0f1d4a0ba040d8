// Package maperr defines the error taxonomy shared by the map codec packages.
//
// Every concrete error type matches one sentinel through errors.Is, so callers
// can branch on the category without caring which package produced it.
package maperr

import (
	"errors"
	"fmt"
)

// Sentinel categories.
var (
	// ErrFormat marks a truncated or malformed stream.
	ErrFormat = errors.New("malformed map data")
	// ErrUnsupportedItemType marks an item tag with no registered codec.
	ErrUnsupportedItemType = errors.New("unsupported item type")
	// ErrUnresolvedReference marks a reference UID that matched no loaded object.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrRange marks a value outside the range its field can hold.
	ErrRange = errors.New("value out of range")
)

// FormatError reports a truncated stream, a bad length prefix or an
// otherwise malformed record.
type FormatError struct {
	// Offset is the byte offset in the stream where the problem was detected.
	Offset int
	// Msg describes the problem.
	Msg string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Msg)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// UnsupportedItemTypeError reports an item tag that the registry cannot
// dispatch. It is always fatal to the current sector read.
type UnsupportedItemTypeError struct {
	Tag    uint32
	Offset int
}

func (e *UnsupportedItemTypeError) Error() string {
	return fmt.Sprintf("unsupported item type %d at offset %d", e.Tag, e.Offset)
}

// Is reports whether target is ErrUnsupportedItemType.
func (e *UnsupportedItemTypeError) Is(target error) bool { return target == ErrUnsupportedItemType }

// UnresolvedReferenceError describes a reference that stayed a placeholder
// after global resolution. It is informational, never fatal on its own.
type UnresolvedReferenceError struct {
	// Owner is the UID of the node or item holding the reference.
	Owner uint64
	// OwnerKind names the owner's kind, e.g. "node" or "map_area".
	OwnerKind string
	// Field names the reference field, e.g. "forward_item" or "nodes[2]".
	Field string
	// Target is the UID that could not be found.
	Target uint64
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s %016x: %s references unknown uid %016x", e.OwnerKind, e.Owner, e.Field, e.Target)
}

// Is reports whether target is ErrUnresolvedReference.
func (e *UnresolvedReferenceError) Is(target error) bool { return target == ErrUnresolvedReference }

// RangeError reports a value that does not fit the field it is written to.
type RangeError struct {
	Field string
	Value any
	Limit string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: value %v out of range (%s)", e.Field, e.Value, e.Limit)
}

// Is reports whether target is ErrRange.
func (e *RangeError) Is(target error) bool { return target == ErrRange }

// Formatf builds a FormatError at the given offset.
func Formatf(offset int, format string, args ...any) error {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
