package domain

import (
	"errors"
	"fmt"
)

// ErrorKind names the class of a pipeline failure for reporting.
type ErrorKind string

const (
	KindNetwork        ErrorKind = "NetworkError"
	KindProtocol       ErrorKind = "ProtocolError"
	KindEmptyResult    ErrorKind = "EmptyResultError"
	KindInvalidRequest ErrorKind = "InvalidRequestError"
	KindMissingField   ErrorKind = "MissingFieldError"
	KindMalformedRow   ErrorKind = "MalformedRowError"
	KindDuplicate      ErrorKind = "DuplicateSymbolError"
	KindIO             ErrorKind = "IOError"
	KindNotFound       ErrorKind = "NotFoundError"
	KindCorruptData    ErrorKind = "CorruptDataError"
	KindInvalidKey     ErrorKind = "InvalidKeyError"
	KindUnknown        ErrorKind = "UnknownError"
)

// NetworkError is a transport failure or an HTTP status >= 400.
// StatusCode is zero when no response was received.
type NetworkError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: http %d: %s", KindNetwork, e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s: %v", KindNetwork, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError means the response envelope did not have the expected shape,
// or the exchange rejected the request with a non-zero retCode.
type ProtocolError struct {
	Endpoint string
	RetCode  int
	RetMsg   string
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.RetCode != 0 {
		return fmt.Sprintf("%s: %s: retCode %d: %s", KindProtocol, e.Endpoint, e.RetCode, e.RetMsg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", KindProtocol, e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", KindProtocol, e.Endpoint, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// EmptyResultError is a well-formed response whose result.list is empty.
// Callers decide whether that is fatal.
type EmptyResultError struct {
	Endpoint string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s: %s: result.list is empty", KindEmptyResult, e.Endpoint)
}

// InvalidRequestError is returned before any I/O when required parameters are missing.
type InvalidRequestError struct {
	Endpoint string
	Param    string
	Reason   string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s: %s: %s %s", KindInvalidRequest, e.Endpoint, e.Param, e.Reason)
}

type MissingFieldError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: element %d: field %q %s", KindMissingField, e.Index, e.Field, e.Reason)
}

type MalformedRowError struct {
	Index  int
	Arity  int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("%s: row %d (arity %d): %s", KindMalformedRow, e.Index, e.Arity, e.Reason)
}

type DuplicateSymbolError struct {
	Index  int
	Symbol string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("%s: element %d: symbol %q already seen", KindDuplicate, e.Index, e.Symbol)
}

type IOError struct {
	Key string
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", KindIO, e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no snapshot under %q", KindNotFound, e.Key)
}

type CorruptDataError struct {
	Key    string
	Reason string
	Err    error
}

func (e *CorruptDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q: %s: %v", KindCorruptData, e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %q: %s", KindCorruptData, e.Key, e.Reason)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

type InvalidKeyError struct {
	Key string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("%s: %q", KindInvalidKey, e.Key)
}

// KindOf reports the kind of the first taxonomy error found in err's chain.
func KindOf(err error) ErrorKind {
	var (
		netErr      *NetworkError
		protoErr    *ProtocolError
		emptyErr    *EmptyResultError
		reqErr      *InvalidRequestError
		missingErr  *MissingFieldError
		rowErr      *MalformedRowError
		dupErr      *DuplicateSymbolError
		ioErr       *IOError
		notFoundErr *NotFoundError
		corruptErr  *CorruptDataError
		keyErr      *InvalidKeyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &protoErr):
		return KindProtocol
	case errors.As(err, &emptyErr):
		return KindEmptyResult
	case errors.As(err, &reqErr):
		return KindInvalidRequest
	case errors.As(err, &missingErr):
		return KindMissingField
	case errors.As(err, &rowErr):
		return KindMalformedRow
	case errors.As(err, &dupErr):
		return KindDuplicate
	case errors.As(err, &notFoundErr):
		return KindNotFound
	case errors.As(err, &corruptErr):
		return KindCorruptData
	case errors.As(err, &keyErr):
		return KindInvalidKey
	case errors.As(err, &ioErr):
		return KindIO
	}
	return KindUnknown
}

// IsEmptyResult reports whether err is (or wraps) an EmptyResultError.
func IsEmptyResult(err error) bool {
	var e *EmptyResultError
	return errors.As(err, &e)
}
