package transport

import "errors"

// Error exposes methods useful for categorizing radio failures.
type Error interface {
	error

	// Temporary returns true if the Error might be the result of a transient
	// condition. For example, the controller may reject a start request while
	// it is still tearing down a previous advertising instance.
	Temporary() bool
}

var (
	// ErrCreationFailed indicates the controller rejected an advertising set
	// creation request.
	ErrCreationFailed = NewError("transport: advertising set creation failed", false)
	// ErrDataRejected indicates an AD structure exceeded the transport cap or
	// was otherwise refused by the controller.
	ErrDataRejected = NewError("transport: advertising data rejected", false)
	// ErrStartFailed indicates an advertising set could not be started.
	ErrStartFailed = NewError("transport: advertising start failed", true)
	// ErrConnectionInfoUnavailable indicates the transport cannot report
	// negotiated connection parameters (for example, BlueZ's D-Bus API does
	// not expose the PHY).
	ErrConnectionInfoUnavailable = NewError("transport: connection info unavailable", false)
)

// RadioError wraps a radio failure with a Temporary predicate.
type RadioError struct {
	Err               error
	PossibleTemporary bool
}

func NewError(message string, temporary bool) error {
	return &RadioError{Err: errors.New(message), PossibleTemporary: temporary}
}

func (e *RadioError) Error() string {
	return e.Err.Error()
}

func (e *RadioError) Unwrap() error {
	return e.Err
}

func (e *RadioError) Temporary() bool {
	return e.PossibleTemporary
}

// Temporary returns true if err indicates a possibly transient condition that
// does not require operator action to resolve.
func Temporary(err error) bool {
	var radioErr Error
	if errors.As(err, &radioErr) {
		return radioErr.Temporary()
	}
	return false
}
