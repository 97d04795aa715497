package blockdev

import (
	"fmt"
	"io"

	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/xaionaro-go/bytesextra"
)

// MemDevice is an in-memory BlockDevice backed by a fixed-size byte slice.
// It exists so tests can exercise the FAT core and image builder without
// touching the host filesystem, the same role bytesextra plays in the
// teacher's own test helpers (testing/images.go).
type MemDevice struct {
	buf            []byte
	stream         io.ReadWriteSeeker
	allocationUnit int64
}

// NewMemDevice allocates a zero-filled in-memory device of the given size.
func NewMemDevice(size int64, allocationUnit int64) *MemDevice {
	buf := make([]byte, size)
	return &MemDevice{
		buf:            buf,
		stream:         bytesextra.NewReadWriteSeeker(buf),
		allocationUnit: allocationUnit,
	}
}

func (m *MemDevice) MediaSize() int64      { return int64(len(m.buf)) }
func (m *MemDevice) AllocationUnit() int64 { return m.allocationUnit }

func (m *MemDevice) checkBounds(offset int64, length int) error {
	if offset < 0 || length < 0 || offset+int64(length) > int64(len(m.buf)) {
		return buildcfg.ErrImageIO.WithMessage(
			fmt.Sprintf("range [%d, %d) extends past end of image (%d bytes)",
				offset, offset+int64(length), len(m.buf)))
	}
	return nil
}

func (m *MemDevice) ReadAt(offset int64, buf []byte) error {
	if err := m.checkBounds(offset, len(buf)); err != nil {
		return err
	}
	if _, err := m.stream.Seek(offset, io.SeekStart); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}
	n, err := io.ReadFull(m.stream, buf)
	if err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}
	if n != len(buf) {
		return buildcfg.ErrImageIO.WithMessage("short read")
	}
	return nil
}

func (m *MemDevice) WriteAt(offset int64, data []byte) error {
	if err := m.checkBounds(offset, len(data)); err != nil {
		return err
	}
	if _, err := m.stream.Seek(offset, io.SeekStart); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}
	n, err := m.stream.Write(data)
	if err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}
	if n != len(data) {
		return buildcfg.ErrImageIO.WithMessage("short write")
	}
	return nil
}

func (m *MemDevice) Flush() error { return nil }

// Bytes returns the raw backing buffer. Intended for test assertions only.
func (m *MemDevice) Bytes() []byte { return m.buf }
