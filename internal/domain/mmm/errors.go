package mmm

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownKind       = errors.New("unknown model kind")
	ErrNoTrainingData    = errors.New("no training data")
	ErrDimensionMismatch = errors.New("feature matrix and target length mismatch")
	ErrInsufficientRows  = errors.New("not enough rows to fit")
	ErrSingularMatrix    = errors.New("singular feature matrix")
	ErrNotConverged      = errors.New("sampler failed convergence diagnostics")
	ErrFeatureMismatch   = errors.New("feature set does not match trained artifact")
	ErrEmptyInput        = errors.New("empty prediction input")
	ErrNilArtifact       = errors.New("no model artifact loaded")
	ErrKindMismatch      = errors.New("artifact kind does not match estimator")
	ErrCorruptArtifact   = errors.New("corrupt model artifact")
)
