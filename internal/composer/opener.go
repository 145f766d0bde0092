package composer

import (
	"io"
	"os"
	"strings"
)

// FileOpener resolves picker uris on the local filesystem. It accepts plain
// paths and file:// uris.
type FileOpener struct{}

func NewFileOpener() *FileOpener {
	return &FileOpener{}
}

var _ MediaOpener = (*FileOpener)(nil)

func (FileOpener) Open(uri string) (io.ReadCloser, error) {
	return os.Open(strings.TrimPrefix(uri, "file://"))
}
