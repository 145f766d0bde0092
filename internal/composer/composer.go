package composer

import "io"

// State is the composition pipeline lifecycle.
type State int

const (
	Empty State = iota
	Staged
	Uploading
	Submitting
	Done
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Staged:
		return "staged"
	case Uploading:
		return "uploading"
	case Submitting:
		return "submitting"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// MediaOpener resolves a device-local picker uri to its content. The real
// implementation lives with the platform media picker.
type MediaOpener interface {
	Open(uri string) (io.ReadCloser, error)
}
