package recorder

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yanun0323/errors"
)

// ReaderOptions controls record decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}

// Reader decodes trace records sequentially.
type Reader struct {
	r         *bufio.Reader
	opts      ReaderOptions
	headerBuf []byte
	payload   []byte
}

// NewReader wraps an io.Reader with trace decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		opts:      opts,
		headerBuf: make([]byte, recordHeaderSize),
	}
}

// Next returns the next record header and payload.
// The payload is only valid until the next call to Next.
func (r *Reader) Next() (RecordHeader, []byte, error) {
	var header RecordHeader

	n, err := io.ReadFull(r.r, r.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return header, nil, io.EOF
		}
		return header, nil, err
	}

	header, payloadLen, err := decodeRecordHeader(r.headerBuf)
	if err != nil {
		return header, nil, err
	}
	if r.opts.MaxPayloadSize > 0 && payloadLen > uint32(r.opts.MaxPayloadSize) {
		return header, nil, ErrPayloadTooLarge
	}

	if payloadLen > 0 {
		if cap(r.payload) < int(payloadLen) {
			r.payload = make([]byte, payloadLen)
		}
		r.payload = r.payload[:payloadLen]
		if _, err := io.ReadFull(r.r, r.payload); err != nil {
			return header, nil, err
		}
	} else {
		r.payload = r.payload[:0]
	}

	var checksumBuf [recordChecksumSize]byte
	if _, err := io.ReadFull(r.r, checksumBuf[:]); err != nil {
		return header, nil, err
	}

	if !r.opts.DisableChecksum {
		expected := binary.LittleEndian.Uint32(checksumBuf[:])
		if sum := checksum(r.headerBuf, r.payload); sum != expected {
			return header, nil, ErrChecksumMismatch
		}
	}

	return header, r.payload, nil
}

// Scan reads every record in a trace directory in file order.
func Scan(dir, prefix string, opts ReaderOptions, handler func(RecordHeader, []byte) error) error {
	if prefix == "" {
		prefix = defaultFilePrefix
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "read trace dir")
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".wal") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)

	for _, path := range files {
		if err := scanFile(path, opts, handler); err != nil {
			return err
		}
	}
	return nil
}

func scanFile(path string, opts ReaderOptions, handler func(RecordHeader, []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := NewReader(f, opts)
	for {
		header, payload, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "read "+path)
		}
		if err := handler(header, payload); err != nil {
			return err
		}
	}
}
