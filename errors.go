package soilmap

import "github.com/rotisserie/eris"

var (
	ErrInvalidExtent           = eris.New("invalid extent")
	ErrInsufficientData        = eris.New("insufficient data")
	ErrSingularSystem          = eris.New("singular kriging system")
	ErrDegenerateTriangulation = eris.New("degenerate triangulation")
	ErrUnsupportedProjection   = eris.New("unsupported projection")
	ErrEmptySurface            = eris.New("empty surface")

	// ErrSkewSplitNotApplicable marks a skew split whose core subset cannot be kriged.
	ErrSkewSplitNotApplicable = eris.New("skew-split not applicable")
)

// notApplicableError reports a skew split that cannot run while keeping the
// underlying cause reachable through Unwrap.
type notApplicableError struct {
	cause error
}

func (e *notApplicableError) Error() string {
	return ErrSkewSplitNotApplicable.Error() + ": " + e.cause.Error()
}

func (e *notApplicableError) Unwrap() error { return e.cause }

func (e *notApplicableError) Is(target error) bool {
	return target == ErrSkewSplitNotApplicable
}
