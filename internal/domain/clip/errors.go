package clip

import "fmt"

// AlignmentError reports a frame/mask count mismatch at a pipeline boundary.
type AlignmentError struct {
	Frames int
	Masks  int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("frame/mask sequences out of alignment: %d frames, %d masks", e.Frames, e.Masks)
}

// InsufficientFramesError reports a resampled clip shorter than the requested
// frame count. Available lets the caller pick a smaller request without
// re-running the resample.
type InsufficientFramesError struct {
	Required  int
	Available int
}

func (e *InsufficientFramesError) Error() string {
	return fmt.Sprintf("clip too short: need %d frames, have %d after resampling", e.Required, e.Available)
}

// ShapeMismatchError reports a compositor input whose length or frame
// dimensions disagree with the reference sequence.
type ShapeMismatchError struct {
	Sequence string
	Index    int
	Want     string
	Got      string
}

func (e *ShapeMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("sequence %q: want %s, got %s", e.Sequence, e.Want, e.Got)
	}
	return fmt.Sprintf("sequence %q frame %d: want %s, got %s", e.Sequence, e.Index, e.Want, e.Got)
}

// NotFoundError reports that no source files matched the expected naming
// convention.
type NotFoundError struct {
	Dir     string
	Pattern string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no files matching %s in %s", e.Pattern, e.Dir)
}
