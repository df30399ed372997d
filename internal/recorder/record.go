// Package recorder persists the simulator's time-ordered event trace
// as a checksummed binary WAL, one record per dispatched event.
package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"main/internal/event"
	"main/internal/model"
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 32
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'S', 'I', 'M', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("trace: invalid magic")
	ErrUnsupportedRecordVer    = errors.New("trace: unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("trace: invalid header size")
	ErrPayloadTooLarge         = errors.New("trace: payload too large")
	ErrChecksumMismatch        = errors.New("trace: checksum mismatch")
)

// RecordHeader is the fixed metadata in front of every payload.
type RecordHeader struct {
	Kind        event.Kind
	Seq         uint64
	TsEffective model.Timestamp
}

func encodeHeader(dst []byte, header RecordHeader, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(header.Kind))
	binary.LittleEndian.PutUint16(dst[10:12], 0)
	binary.LittleEndian.PutUint32(dst[12:16], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[16:24], header.Seq)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(header.TsEffective))
}

func decodeRecordHeader(src []byte) (RecordHeader, uint32, error) {
	if len(src) < recordHeaderSize {
		return RecordHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return RecordHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return RecordHeader{}, 0, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return RecordHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	payloadLen := binary.LittleEndian.Uint32(src[12:16])
	h := RecordHeader{
		Kind:        event.Kind(binary.LittleEndian.Uint16(src[8:10])),
		Seq:         binary.LittleEndian.Uint64(src[16:24]),
		TsEffective: model.Timestamp(binary.LittleEndian.Uint64(src[24:32])),
	}
	return h, payloadLen, nil
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}
