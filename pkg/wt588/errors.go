package wt588

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every operation. Operations return an *OpError whose
// Err chain contains exactly one of these sentinels, so callers can use
// errors.Is regardless of which operation failed.
var (
	ErrNullHandle        = errors.New("wt588: handle is nil")
	ErrNotInitialized    = errors.New("wt588: handle is not initialized")
	ErrMissingCapability = errors.New("wt588: missing capability")
	ErrInvalidArgument   = errors.New("wt588: invalid argument")
	ErrDeviceBusy        = errors.New("wt588: chip is busy")
	ErrTransport         = errors.New("wt588: transport failure")
	ErrChecksumMismatch  = errors.New("wt588: checksum mismatch")
	ErrFileAccess        = errors.New("wt588: binary source failure")
	ErrSizeInvalid       = errors.New("wt588: binary size is invalid")
)

// Status codes reported in OpError.Code. Codes 1-3 mean the same thing for
// every operation; codes from 4 up are operation specific and documented on
// each method.
const (
	CodeFailed         uint8 = 1
	CodeNullHandle     uint8 = 2
	CodeNotInitialized uint8 = 3
)

// OpError records a failed driver operation together with the numeric status
// code the chip driver has always reported for that failure.
type OpError struct {
	Op   string
	Code uint8
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("wt588: %s failed (code %d): %v", e.Op, e.Code, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// RangeError reports an argument outside the range the chip accepts.
type RangeError struct {
	Name     string
	Position int // list position, or -1 when the argument is scalar
	Value    int
	Max      int
}

func (e *RangeError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s[%d] = %#x exceeds %#x", e.Name, e.Position, e.Value, e.Max)
	}
	return fmt.Sprintf("%s = %#x exceeds %#x", e.Name, e.Value, e.Max)
}

func (e *RangeError) Is(target error) bool { return target == ErrInvalidArgument }

// ChecksumMismatchError indicates that the status word read back before a
// packet disagreed with the locally accumulated checksum.
type ChecksumMismatchError struct {
	Packet int // zero-based index of the packet about to be sent
	Local  uint16
	Remote uint16
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch before packet %d: local 0x%04X, chip reports 0x%04X",
		e.Packet, e.Local, e.Remote)
}

func (e *ChecksumMismatchError) Is(target error) bool { return target == ErrChecksumMismatch }

// SizeError reports a binary whose size cannot be transferred.
type SizeError struct {
	Size     uint32
	Multiple uint32
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("binary size %d is not a multiple of %d", e.Size, e.Multiple)
}

func (e *SizeError) Is(target error) bool { return target == ErrSizeInvalid }

func opError(op string, code uint8, err error) error {
	return &OpError{Op: op, Code: code, Err: err}
}

func transportError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, what, err)
}
