package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	recordMagic   uint32 = 0xA9C07A11
	recordVersion byte   = 1
	crcSize              = 4
	headerSize           = 4 + 1 + 2 + 4 // magic + version + typeLen + dataLen
)

var (
	errPartial = errors.New("journal: partial record")
	// ErrCorrupt signals on-disk data corruption.
	ErrCorrupt = errors.New("journal: corrupt record")
)

// Record describes one logical entry persisted in the journal.
type Record struct {
	Type  string
	Data  []byte
	Index int64
}

func (r Record) encode() ([]byte, error) {
	if len(r.Type) == 0 {
		return nil, fmt.Errorf("journal: record type required")
	}
	if len(r.Type) > 0xffff {
		return nil, fmt.Errorf("journal: record type exceeds 64K")
	}

	typeLen := len(r.Type)
	dataLen := len(r.Data)
	total := headerSize + typeLen + dataLen + crcSize

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:4], recordMagic)
	buf[4] = recordVersion
	binary.BigEndian.PutUint16(buf[5:7], uint16(typeLen))
	binary.BigEndian.PutUint32(buf[7:11], uint32(dataLen))

	copy(buf[headerSize:headerSize+typeLen], r.Type)
	copy(buf[headerSize+typeLen:headerSize+typeLen+dataLen], r.Data)

	checksum := crc32.NewIEEE()
	checksum.Write(buf[4 : total-crcSize])
	binary.BigEndian.PutUint32(buf[total-crcSize:], checksum.Sum32())
	return buf, nil
}

func decodeRecord(r io.Reader) (Record, int64, error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(r, header)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Record{}, 0, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || (errors.Is(err, io.EOF) && n > 0) {
			return Record{}, int64(n), errPartial
		}
		return Record{}, int64(n), err
	}
	if binary.BigEndian.Uint32(header[0:4]) != recordMagic {
		return Record{}, int64(n), ErrCorrupt
	}
	if header[4] != recordVersion {
		return Record{}, int64(n), ErrCorrupt
	}

	typeLen := int(binary.BigEndian.Uint16(header[5:7]))
	dataLen := int(binary.BigEndian.Uint32(header[7:11]))

	payload := make([]byte, typeLen+dataLen+crcSize)
	read, err := io.ReadFull(r, payload)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, int64(n + read), errPartial
		}
		return Record{}, int64(n + read), err
	}

	checksum := crc32.NewIEEE()
	checksum.Write(header[4:])
	checksum.Write(payload[:typeLen+dataLen])
	expected := binary.BigEndian.Uint32(payload[typeLen+dataLen:])
	if checksum.Sum32() != expected {
		return Record{}, int64(n + read), ErrCorrupt
	}

	var rec Record
	rec.Type = string(payload[:typeLen])
	if dataLen > 0 {
		rec.Data = make([]byte, dataLen)
		copy(rec.Data, payload[typeLen:typeLen+dataLen])
	}
	return rec, int64(n + read), nil
}
