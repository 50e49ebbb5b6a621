// Package vdh implements the Vector Disk Hash: a persistent, write-once
// mapping from a string key to an ordered sequence of string values,
// backed by two files — a data file holding the values themselves and an
// index file mapping each key to a Location within it.
//
// A VDH is built for exactly one of two purposes in its lifetime: writing
// (Create, then any mix of Reserve and Append, then Close) or reading
// (Open, then any mix of Lookup/LookupSample/IsMember, then Close). A
// dataset directory is never reopened for append.
package vdh

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"ldlookup/internal/logging"
)

const (
	keyDelimiter   byte = 0x0A // KEY_DELIMITER, newline
	valueDelimiter byte = 0x09 // VALUE_DELIMITER, tab
)

const (
	dataFileSuffix  = ".vdhdat"
	indexFileSuffix = ".vdhdht"
)

// VDH is a handle to one open Vector Disk Hash. Not safe for concurrent
// use; the caller serializes access.
type VDH struct {
	logger *slog.Logger

	name       string
	maxKeySize uint32
	writable   bool

	dataFile *os.File
	index    *diskIndex

	hasEOFKey bool
	eofKey    string
}

// Create makes a new, empty, writable VDH named name inside dir. Fails
// with ErrAlreadyExists if either backing file already exists.
func Create(dir, name string, maxKeySize uint32, logger *slog.Logger) (*VDH, error) {
	logger = logging.Default(logger).With("component", "vdh", "name", name)

	dataPath := filepath.Join(dir, name+dataFileSuffix)
	indexPath := filepath.Join(dir, name+indexFileSuffix)

	idx, err := createIndex(indexPath, maxKeySize)
	if err != nil {
		return nil, err
	}

	dataFile, err := os.OpenFile(dataPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		idx.close()
		os.Remove(indexPath)
		if os.IsExist(err) {
			return nil, fmt.Errorf("create data file %q: %w", dataPath, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create data file %q: %w", dataPath, err)
	}

	header := strconv.FormatUint(uint64(maxKeySize), 10)
	if _, err := dataFile.Write(append([]byte(header), keyDelimiter)); err != nil {
		dataFile.Close()
		idx.close()
		return nil, fmt.Errorf("write data header: %w: %w", ErrIOError, err)
	}

	logger.Debug("vdh created", "max_key_size", maxKeySize)

	return &VDH{
		logger:     logger,
		name:       name,
		maxKeySize: maxKeySize,
		writable:   true,
		dataFile:   dataFile,
		index:      idx,
	}, nil
}

// Open opens an existing VDH named name inside dir, read-only, recovering
// max_key_size from the on-disk header.
func Open(dir, name string, logger *slog.Logger) (*VDH, error) {
	logger = logging.Default(logger).With("component", "vdh", "name", name)

	dataPath := filepath.Join(dir, name+dataFileSuffix)
	indexPath := filepath.Join(dir, name+indexFileSuffix)

	idx, err := openIndex(indexPath)
	if err != nil {
		return nil, err
	}

	dataFile, err := os.Open(dataPath)
	if err != nil {
		idx.close()
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open data file %q: %w", dataPath, ErrNotFound)
		}
		return nil, fmt.Errorf("open data file %q: %w", dataPath, err)
	}

	r := bufio.NewReader(dataFile)
	headerBytes, err := r.ReadBytes(keyDelimiter)
	if err != nil {
		dataFile.Close()
		idx.close()
		return nil, fmt.Errorf("read data header: %w: %w", ErrCorrupt, err)
	}
	headerBytes = headerBytes[:len(headerBytes)-1]
	maxKeySize, err := strconv.ParseUint(string(headerBytes), 10, 32)
	if err != nil {
		dataFile.Close()
		idx.close()
		return nil, fmt.Errorf("parse data header %q: %w: %w", headerBytes, ErrCorrupt, err)
	}
	if uint32(maxKeySize) != idx.maxKeySize {
		dataFile.Close()
		idx.close()
		return nil, fmt.Errorf("data header max_key_size %d disagrees with index %d: %w",
			maxKeySize, idx.maxKeySize, ErrCorrupt)
	}

	logger.Debug("vdh opened", "max_key_size", maxKeySize, "keys", len(idx.entries))

	return &VDH{
		logger:     logger,
		name:       name,
		maxKeySize: uint32(maxKeySize),
		writable:   false,
		dataFile:   dataFile,
		index:      idx,
	}, nil
}

// Reserve pre-allocates bytes of padding at the end of the data file for
// key and records its Location, so later Append calls can interleave
// writes to many keys without reallocating space. key must not already
// be present.
func (v *VDH) Reserve(key string, bytes uint64) error {
	if !v.writable {
		return fmt.Errorf("reserve %q: %w", key, ErrReadOnly)
	}
	if uint32(len(key)) > v.maxKeySize {
		return fmt.Errorf("reserve %q: %w", key, ErrKeyTooLong)
	}
	if _, ok := v.index.entries[key]; ok {
		return fmt.Errorf("reserve %q: %w", key, ErrDuplicateKey)
	}

	if _, err := v.dataFile.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("reserve %q: seek: %w: %w", key, ErrIOError, err)
	}
	if _, err := v.dataFile.Write([]byte{keyDelimiter}); err != nil {
		return fmt.Errorf("reserve %q: write delimiter: %w: %w", key, ErrIOError, err)
	}
	start, err := v.dataFile.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("reserve %q: tell: %w: %w", key, ErrIOError, err)
	}

	padding := sliceOf(keyDelimiter, bytes)
	if _, err := v.dataFile.Write(padding); err != nil {
		return fmt.Errorf("reserve %q: write padding: %w: %w", key, ErrIOError, err)
	}

	loc := &location{start: start, writeLocation: start, bytesReserved: bytes}
	if err := v.index.insert(key, loc); err != nil {
		return fmt.Errorf("reserve %q: %w", key, err)
	}
	// End-of-file now belongs to key's reserved region, so the previous
	// end-of-file key can no longer grow there.
	v.hasEOFKey = false
	return nil
}

func sliceOf(fill byte, n uint64) []byte {
	return bytes.Repeat([]byte{fill}, int(n))
}

// Append adds value to the end of key's value sequence, following the
// append state machine: a fresh append to the most recently appended key
// goes straight to end-of-file; a brand-new key opens a region at
// end-of-file; an append to any other already-indexed key must land
// inside bytes reserved for it by a prior Reserve call, or fails with
// ErrOutOfReserve.
func (v *VDH) Append(key, value string) error {
	if !v.writable {
		return fmt.Errorf("append %q: %w", key, ErrReadOnly)
	}
	if uint32(len(key)) > v.maxKeySize {
		return fmt.Errorf("append %q: %w", key, ErrKeyTooLong)
	}

	switch {
	case v.hasEOFKey && key == v.eofKey:
		if _, err := v.dataFile.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("append %q: seek: %w: %w", key, ErrIOError, err)
		}
		buf := append([]byte{valueDelimiter}, value...)
		if _, err := v.dataFile.Write(buf); err != nil {
			return fmt.Errorf("append %q: write: %w: %w", key, ErrIOError, err)
		}
		return nil

	default:
		if loc, ok := v.index.entries[key]; ok {
			needed := int64(len(value)) + 1
			if needed > int64(loc.bytesReserved) {
				return fmt.Errorf("append %q: %w", key, ErrOutOfReserve)
			}
			if _, err := v.dataFile.Seek(loc.writeLocation, io.SeekStart); err != nil {
				return fmt.Errorf("append %q: seek: %w: %w", key, ErrIOError, err)
			}
			buf := append([]byte{valueDelimiter}, value...)
			if _, err := v.dataFile.Write(buf); err != nil {
				return fmt.Errorf("append %q: write: %w: %w", key, ErrIOError, err)
			}
			loc.writeLocation += needed
			loc.bytesReserved -= uint64(needed)
			if err := v.index.persist(key, loc); err != nil {
				return fmt.Errorf("append %q: %w", key, err)
			}
			return nil
		}

		if _, err := v.dataFile.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("append %q: seek: %w: %w", key, ErrIOError, err)
		}
		if _, err := v.dataFile.Write([]byte{keyDelimiter}); err != nil {
			return fmt.Errorf("append %q: write delimiter: %w: %w", key, ErrIOError, err)
		}
		start, err := v.dataFile.Seek(0, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("append %q: tell: %w: %w", key, ErrIOError, err)
		}
		if _, err := v.dataFile.Write([]byte(value)); err != nil {
			return fmt.Errorf("append %q: write value: %w: %w", key, ErrIOError, err)
		}

		loc := &location{start: start, writeLocation: 0, bytesReserved: 0}
		if err := v.index.insert(key, loc); err != nil {
			return fmt.Errorf("append %q: %w", key, err)
		}
		v.eofKey = key
		v.hasEOFKey = true
		return nil
	}
}

// Lookup returns the ordered sequence of values ever appended to key.
func (v *VDH) Lookup(key string) ([]string, error) {
	loc, ok := v.index.entries[key]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", key, ErrMissingKey)
	}

	region, err := v.readRegion(loc)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", key, err)
	}

	fields := bytes.Split(region, []byte{valueDelimiter})
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) == 0 {
			continue
		}
		values = append(values, string(f))
	}
	return values, nil
}

// LookupSample draws k values uniformly at random, with replacement, from
// key's value sequence, preserving duplicates.
func (v *VDH) LookupSample(key string, k int) ([]string, error) {
	values, err := v.Lookup(key)
	if err != nil {
		return nil, err
	}
	if k > 0 && len(values) == 0 {
		return nil, fmt.Errorf("lookup_sample %q: %w", key, ErrEmptyKey)
	}

	samples := make([]string, k)
	for i := range samples {
		samples[i] = values[rand.IntN(len(values))]
	}
	return samples, nil
}

// IsMember reports whether key was ever the subject of a Reserve or
// Append call.
func (v *VDH) IsMember(key string) bool {
	_, ok := v.index.entries[key]
	return ok
}

// MaxKeySize returns the max_key_size fixed at creation.
func (v *VDH) MaxKeySize() uint32 {
	return v.maxKeySize
}

// Close releases the VDH's two file handles.
func (v *VDH) Close() error {
	dataErr := v.dataFile.Close()
	indexErr := v.index.close()
	if dataErr != nil {
		return fmt.Errorf("close data file: %w: %w", ErrIOError, dataErr)
	}
	if indexErr != nil {
		return fmt.Errorf("close index file: %w: %w", ErrIOError, indexErr)
	}
	return nil
}

func (v *VDH) readRegion(loc *location) ([]byte, error) {
	if _, err := v.dataFile.Seek(loc.start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w: %w", ErrIOError, err)
	}
	r := bufio.NewReader(v.dataFile)
	data, err := r.ReadBytes(keyDelimiter)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read: %w: %w", ErrIOError, err)
		}
		return data, nil
	}
	return data[:len(data)-1], nil
}
