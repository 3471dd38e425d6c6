package netcore

import "errors"

// NetError is the device/protocol/interface-layer error kind. All
// recoverable, user-facing failures from this package satisfy errors.Is
// against one of the sentinels below.
type NetError struct {
	msg   string
	cause error
}

func newNetError(msg string) *NetError { return &NetError{msg: msg} }

func (e *NetError) Error() string { return "net: " + e.msg }
func (e *NetError) Unwrap() error { return e.cause }

var (
	// ErrDeviceNotUp is returned by Output when the target device has not
	// been opened.
	ErrDeviceNotUp = errors.New("device not up")
	// ErrDataTooLarge is returned by Output when the payload exceeds the
	// device's MTU.
	ErrDataTooLarge = errors.New("data too large")
	// ErrUnknownDevice is returned when a DeviceHandle does not resolve to a
	// registered device.
	ErrUnknownDevice = errors.New("unknown device handle")
	// ErrDuplicateInterfaceFamily is returned by RegisterInterface when the
	// device already carries an interface of the requested family.
	ErrDuplicateInterfaceFamily = errors.New("duplicate interface family")
	// ErrUnsupportedOperation is returned by device variants that do not
	// implement an optional capability (e.g. the dummy driver has no
	// interfaces).
	ErrUnsupportedOperation = errors.New("unsupported operation for this device variant")
)

// wrap produces a *NetError chained to a sentinel so callers can use
// errors.Is(err, ErrDeviceNotUp) etc. while still getting a descriptive
// message.
func wrap(sentinel error, detail string) error {
	e := newNetError(detail)
	e.cause = sentinel
	return e
}
