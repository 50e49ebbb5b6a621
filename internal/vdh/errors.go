package vdh

import "errors"

// Sentinel errors corresponding to the VDH's error kinds. Callers should
// test with errors.Is; the wrapped underlying error (if any) carries
// implementation detail such as the failing syscall.
var (
	// ErrIOError wraps an underlying file read/write/seek failure.
	ErrIOError = errors.New("vdh: i/o error")

	// ErrNotFound is returned by Open when the dataset's files are missing.
	ErrNotFound = errors.New("vdh: not found")

	// ErrAlreadyExists is returned by Create when files of this name
	// already exist in the directory.
	ErrAlreadyExists = errors.New("vdh: already exists")

	// ErrCorrupt is returned when a header is malformed, a stored value is
	// unparseable, or an on-disk invariant is violated.
	ErrCorrupt = errors.New("vdh: corrupt")

	// ErrMissingKey is returned by Lookup/LookupSample for a key that was
	// never reserved or appended.
	ErrMissingKey = errors.New("vdh: missing key")

	// ErrDuplicateKey is returned by Reserve for a key already present in
	// the index.
	ErrDuplicateKey = errors.New("vdh: duplicate key")

	// ErrKeyTooLong is returned when a key exceeds the VDH's max_key_size.
	ErrKeyTooLong = errors.New("vdh: key too long")

	// ErrOutOfReserve is returned when an append to a reserved key would
	// exceed its remaining reserved bytes.
	ErrOutOfReserve = errors.New("vdh: out of reserve")

	// ErrReadOnly is returned by a write operation on a VDH opened
	// read-only.
	ErrReadOnly = errors.New("vdh: read-only")

	// ErrEmptyKey is returned by LookupSample(k > 0) when the key's value
	// sequence is empty.
	ErrEmptyKey = errors.New("vdh: empty key")
)
