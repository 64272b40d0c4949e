package fluid

import "errors"

var (
	//ErrInvalidSettings is wrapped by every settings validation failure
	ErrInvalidSettings = errors.New("fluid: invalid settings")
	//ErrDimensionMismatch reports data of the wrong dimensionality for the solver
	ErrDimensionMismatch = errors.New("fluid: dimension mismatch")
)
