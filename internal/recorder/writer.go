package recorder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yanun0323/errors"
)

const (
	defaultSegmentMaxBytes int64 = 1 << 30
	defaultBufferSize            = 256 * 1024
	defaultFilePrefix            = "trace"
)

// Config controls trace writing.
type Config struct {
	Dir             string
	FilePrefix      string
	RunID           string
	SegmentMaxBytes int64
	BufferSize      int
}

// DefaultConfig returns a baseline trace configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		FilePrefix:      defaultFilePrefix,
		SegmentMaxBytes: defaultSegmentMaxBytes,
		BufferSize:      defaultBufferSize,
	}
}

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid trace config: Dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("invalid trace config: SegmentMaxBytes must be > 0")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid trace config: BufferSize must be > 0")
	}
	return nil
}

// Writer appends trace records to size-rotated segment files. Only the
// dispatch thread appends; no internal locking.
type Writer struct {
	cfg       Config
	file      *os.File
	buf       *bufio.Writer
	headerBuf [recordHeaderSize]byte
	segment   int
	written   int64
	closed    bool
}

// NewWriter creates the directory and opens the first segment.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create trace dir")
	}
	w := &Writer{cfg: cfg}
	if err := w.rotate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Append writes one record. The payload may be reused by the caller
// afterwards.
func (w *Writer) Append(header RecordHeader, payload []byte) error {
	if w.closed {
		return errors.New("trace writer closed")
	}
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return ErrPayloadTooLarge
	}
	if w.written > 0 && w.written+int64(recordHeaderSize+len(payload)+recordChecksumSize) > w.cfg.SegmentMaxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	encodeHeader(w.headerBuf[:], header, len(payload))
	if _, err := w.buf.Write(w.headerBuf[:]); err != nil {
		return err
	}
	if _, err := w.buf.Write(payload); err != nil {
		return err
	}
	var crcBuf [recordChecksumSize]byte
	binary.LittleEndian.PutUint32(crcBuf[:], checksum(w.headerBuf[:], payload))
	if _, err := w.buf.Write(crcBuf[:]); err != nil {
		return err
	}
	w.written += int64(recordHeaderSize + len(payload) + recordChecksumSize)
	return nil
}

// Close flushes and closes the current segment. Idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			w.file.Close()
			return err
		}
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

func (w *Writer) rotate() error {
	if w.file != nil {
		if err := w.buf.Flush(); err != nil {
			return err
		}
		if err := w.file.Close(); err != nil {
			return err
		}
	}

	name := fmt.Sprintf("%s-%05d.wal", w.cfg.FilePrefix, w.segment)
	if w.cfg.RunID != "" {
		name = fmt.Sprintf("%s-%s-%05d.wal", w.cfg.FilePrefix, w.cfg.RunID, w.segment)
	}
	f, err := os.Create(filepath.Join(w.cfg.Dir, name))
	if err != nil {
		return errors.Wrap(err, "create trace segment")
	}
	w.file = f
	w.buf = bufio.NewWriterSize(f, w.cfg.BufferSize)
	w.segment++
	w.written = 0
	return nil
}
