package vdh

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// location is the on-disk record for one key: where its value region
// starts in the data file, how far writes into it have progressed, and
// how many reserved bytes remain.
type location struct {
	start         int64
	writeLocation int64
	bytesReserved uint64

	// indexOffset is the byte offset of this key's fixed-size record
	// within the .dht file, so writeLocation/bytesReserved updates can be
	// persisted in place without rewriting the whole index.
	indexOffset int64
}

// Fixed record layout within the .dht file, following the index header:
//
//	keyLen         uint16 (2 bytes)
//	key            [maxKeySize]byte, zero-padded
//	start          int64  (8 bytes)
//	writeLocation  int64  (8 bytes)
//	bytesReserved  uint64 (8 bytes)
const (
	keyLenFieldSize    = 2
	locationFieldsSize = 8 + 8 + 8
)

func recordSize(maxKeySize uint32) int64 {
	return keyLenFieldSize + int64(maxKeySize) + locationFieldsSize
}

// diskIndex is the in-memory view of a VDH's .dht file: every key ever
// reserved or appended maps to its location. For a writable VDH, new
// entries are appended to the file and mutations are written in place
// (fixed record size makes this safe); for a read-only VDH, the whole
// file is loaded once at Open and never touched again.
type diskIndex struct {
	file       *os.File
	maxKeySize uint32
	writable   bool
	entries    map[string]*location
	nextOffset int64 // end of the index file, where the next new record goes
}

func createIndex(path string, maxKeySize uint32) (*diskIndex, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("create index %q: %w", path, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create index %q: %w", path, err)
	}

	h := indexHeader{version: indexCurrentVersion}
	hdr := h.encode()
	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("write index header: %w", err)
	}
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], maxKeySize)
	if _, err := f.Write(sizeBuf[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("write index max key size: %w", err)
	}

	return &diskIndex{
		file:       f,
		maxKeySize: maxKeySize,
		writable:   true,
		entries:    make(map[string]*location),
		nextOffset: indexHeaderSize + 4,
	}, nil
}

func openIndex(path string) (*diskIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open index %q: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open index %q: %w", path, err)
	}

	hdrBuf := make([]byte, indexHeaderSize+4)
	if _, err := io.ReadFull(f, hdrBuf); err != nil {
		f.Close()
		return nil, fmt.Errorf("read index header: %w: %w", ErrCorrupt, err)
	}
	if _, err := decodeIndexHeader(hdrBuf[:indexHeaderSize]); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	maxKeySize := binary.LittleEndian.Uint32(hdrBuf[indexHeaderSize:])

	idx := &diskIndex{
		file:       f,
		maxKeySize: maxKeySize,
		writable:   false,
		entries:    make(map[string]*location),
	}

	rs := recordSize(maxKeySize)
	offset := int64(indexHeaderSize + 4)
	rec := make([]byte, rs)
	for {
		if _, err := io.ReadFull(f, rec); err != nil {
			if err == io.EOF {
				break
			}
			f.Close()
			return nil, fmt.Errorf("read index record: %w: %w", ErrCorrupt, err)
		}
		key, loc, err := decodeRecord(rec, maxKeySize, offset)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("decode index record: %w: %w", ErrCorrupt, err)
		}
		idx.entries[key] = loc
		offset += rs
	}
	idx.nextOffset = offset

	return idx, nil
}

func encodeRecord(buf []byte, key string, loc *location, maxKeySize uint32) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(key)))
	copy(buf[2:2+maxKeySize], key)
	cursor := 2 + int(maxKeySize)
	binary.LittleEndian.PutUint64(buf[cursor:cursor+8], uint64(loc.start))
	cursor += 8
	binary.LittleEndian.PutUint64(buf[cursor:cursor+8], uint64(loc.writeLocation))
	cursor += 8
	binary.LittleEndian.PutUint64(buf[cursor:cursor+8], loc.bytesReserved)
}

func decodeRecord(buf []byte, maxKeySize uint32, offset int64) (string, *location, error) {
	if len(buf) < int(recordSize(maxKeySize)) {
		return "", nil, errHeaderTooSmall
	}
	keyLen := binary.LittleEndian.Uint16(buf[0:2])
	if int(keyLen) > int(maxKeySize) {
		return "", nil, fmt.Errorf("key length %d exceeds max key size %d", keyLen, maxKeySize)
	}
	key := string(buf[2 : 2+int(keyLen)])
	cursor := 2 + int(maxKeySize)
	start := int64(binary.LittleEndian.Uint64(buf[cursor : cursor+8]))
	cursor += 8
	writeLocation := int64(binary.LittleEndian.Uint64(buf[cursor : cursor+8]))
	cursor += 8
	bytesReserved := binary.LittleEndian.Uint64(buf[cursor : cursor+8])
	return key, &location{
		start:         start,
		writeLocation: writeLocation,
		bytesReserved: bytesReserved,
		indexOffset:   offset,
	}, nil
}

// insert appends a brand-new key's location record to the index file and
// tracks it in memory.
func (idx *diskIndex) insert(key string, loc *location) error {
	rs := recordSize(idx.maxKeySize)
	buf := make([]byte, rs)
	loc.indexOffset = idx.nextOffset
	encodeRecord(buf, key, loc, idx.maxKeySize)
	if _, err := idx.file.WriteAt(buf, idx.nextOffset); err != nil {
		return fmt.Errorf("write index record: %w", err)
	}
	idx.entries[key] = loc
	idx.nextOffset += rs
	return nil
}

// persist rewrites an existing key's mutable fields (writeLocation,
// bytesReserved) in place.
func (idx *diskIndex) persist(key string, loc *location) error {
	var buf [8 + 8]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(loc.writeLocation))
	binary.LittleEndian.PutUint64(buf[8:16], loc.bytesReserved)
	offset := loc.indexOffset + keyLenFieldSize + int64(idx.maxKeySize) + 8
	if _, err := idx.file.WriteAt(buf[:], offset); err != nil {
		return fmt.Errorf("update index record for %q: %w", key, err)
	}
	return nil
}

func (idx *diskIndex) close() error {
	return idx.file.Close()
}
