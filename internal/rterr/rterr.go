// Package rterr defines the stable error taxonomy shared by every runtime
// subsystem (memory segments, pools, NVM, audio, tone, GPIO).
//
// Every Kind below is a stable identifier: logs, tests and the hosted
// simulator's diagnostics print it verbatim, so renaming a Kind is a
// compatibility break in the same way renaming a wire message would be.
package rterr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. The zero value, None, is not an error.
type Kind int

const (
	None Kind = iota
	NullPtr
	InvalidMemAlign
	InvalidMemSize
	InvalidSegSize
	InvalidSegAlign
	InvalidSegOverlap
	InvalidSegExists
	SegOvf
	HeapOvf
	InvalidBlkAlign
	InvalidBlkSize
	InvalidBlkNbr
	InvalidBlkAddr
	InvalidBlkAddrInPool
	PoolEmpty
	PoolFull
	PoolUnlimited
	IO
	Unsup
	Inval
	Busy
)

var names = [...]string{
	None:                 "NONE",
	NullPtr:              "NULL_PTR",
	InvalidMemAlign:      "INVALID_MEM_ALIGN",
	InvalidMemSize:       "INVALID_MEM_SIZE",
	InvalidSegSize:       "INVALID_SEG_SIZE",
	InvalidSegAlign:      "INVALID_SEG_ALIGN",
	InvalidSegOverlap:    "INVALID_SEG_OVERLAP",
	InvalidSegExists:     "INVALID_SEG_EXISTS",
	SegOvf:               "SEG_OVF",
	HeapOvf:              "HEAP_OVF",
	InvalidBlkAlign:      "INVALID_BLK_ALIGN",
	InvalidBlkSize:       "INVALID_BLK_SIZE",
	InvalidBlkNbr:        "INVALID_BLK_NBR",
	InvalidBlkAddr:       "INVALID_BLK_ADDR",
	InvalidBlkAddrInPool: "INVALID_BLK_ADDR_IN_POOL",
	PoolEmpty:            "POOL_EMPTY",
	PoolFull:             "POOL_FULL",
	PoolUnlimited:        "POOL_UNLIMITED",
	IO:                   "IO",
	Unsup:                "UNSUP",
	Inval:                "INVAL",
	Busy:                 "EBUSY",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(names) || names[k] == "" {
		return "UNKNOWN"
	}
	return names[k]
}

// Error wraps a Kind with optional operation context. Argument-check errors
// carry no side effects; resource-exhaustion errors may carry Detail (e.g.
// the SEG_OVF deficit).
type Error struct {
	Kind   Kind
	Op     string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// New builds an *Error for op failing with kind.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Newf builds an *Error with a formatted detail string.
func Newf(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if err == nil {
		return kind == None
	}
	if ok := As(err, &e); ok {
		return e.Kind == kind
	}
	return false
}

// As is a narrow local stand-in for errors.As restricted to *Error, used so
// callers don't need to import the errors package just to check a Kind.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}
