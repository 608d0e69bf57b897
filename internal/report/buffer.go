package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/obentoo/gun/internal/common/shell"
)

var (
	ErrCaptureFile   = errors.New("cannot create capture file")
	ErrBufferSealed  = errors.New("report buffer already holds a capture")
	ErrBufferPending = errors.New("report buffer holds no capture yet")
)

// Buffer holds the output of one dry-run invocation. The output is spooled
// to a temporary file that is removed on Close, then kept in memory and
// never modified.
type Buffer struct {
	file   *os.File
	text   string
	sealed bool
}

// NewBuffer creates the backing temporary file in dir.
// An empty dir selects the system temporary directory.
func NewBuffer(dir string) (*Buffer, error) {
	f, err := os.CreateTemp(dir, "gun-")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFile, err)
	}
	return &Buffer{file: f}, nil
}

// FromText returns a sealed Buffer holding text, without a backing file
func FromText(text string) *Buffer {
	return &Buffer{text: text, sealed: true}
}

// Capture runs command through exec and stores its combined output.
// The output is kept even when the command fails; the command error is
// returned for logging only.
func (b *Buffer) Capture(ctx context.Context, exec shell.Executor, command string) error {
	if b.sealed {
		return ErrBufferSealed
	}

	runErr := exec.Capture(ctx, command, b.file)

	if err := b.load(); err != nil {
		return err
	}
	return runErr
}

// ReadFrom stores everything read from r, for reports saved earlier
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	if b.sealed {
		return 0, ErrBufferSealed
	}
	n, err := io.Copy(b.file, r)
	if err != nil {
		return n, err
	}
	return n, b.load()
}

func (b *Buffer) load() error {
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding capture file: %w", err)
	}
	data, err := io.ReadAll(b.file)
	if err != nil {
		return fmt.Errorf("reading capture file: %w", err)
	}
	b.text = string(data)
	b.sealed = true
	return nil
}

// Text returns the captured output
func (b *Buffer) Text() (string, error) {
	if !b.sealed {
		return "", ErrBufferPending
	}
	return b.text, nil
}

// Len returns the size of the captured output in bytes
func (b *Buffer) Len() int {
	return len(b.text)
}

// Path returns the backing file path, or "" for in-memory buffers
func (b *Buffer) Path() string {
	if b.file == nil {
		return ""
	}
	return b.file.Name()
}

// Close removes the backing file. It is safe to call more than once.
func (b *Buffer) Close() error {
	if b.file == nil {
		return nil
	}
	name := b.file.Name()
	closeErr := b.file.Close()
	b.file = nil
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}
