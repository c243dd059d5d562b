package h3array

import "errors"

var (
	ErrInvalidCell          = errors.New("invalid h3 cell")
	ErrInvalidVertex        = errors.New("invalid h3 vertex")
	ErrInvalidDirectedEdge  = errors.New("invalid h3 directed edge")
	ErrInvalidResolution    = errors.New("invalid h3 resolution")
	ErrMixedResolutions     = errors.New("heterogeneous resolutions")
	ErrNotParsable          = errors.New("not parsable")
	ErrLengthMismatch       = errors.New("length mismatch")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidGeometry      = errors.New("invalid geometry")
	ErrNotWGS84             = errors.New("input spans significantly more than the bounds of WGS84")
	ErrLocalIJ              = errors.New("local ij conversion failed")
	ErrUnsupportedValueType = errors.New("unsupported value type")
	ErrPanic                = errors.New("operation panicked")
)

// IsUserError reports whether err was caused by the caller's input rather than
// by the engine itself.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrInvalidCell, ErrInvalidVertex, ErrInvalidDirectedEdge,
		ErrInvalidResolution, ErrMixedResolutions, ErrNotParsable,
		ErrLengthMismatch, ErrInvalidArgument, ErrInvalidGeometry,
		ErrNotWGS84, ErrLocalIJ, ErrUnsupportedValueType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
