package scoring

import "fmt"

// ArtifactError reports a model, scaler or vocabulary that could not be
// loaded, does not fit together, or yields a non-numeric output. It means a
// bad deployment.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("scoring artifacts: %v", e.Err)
	}
	return fmt.Sprintf("scoring artifacts: %s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// TransformError reports a fitted transform rejecting the features it was
// given.
type TransformError struct {
	Stage string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

func artifactErr(path string, format string, args ...any) error {
	return &ArtifactError{Path: path, Err: fmt.Errorf(format, args...)}
}
