package journal

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Segment file layout:
//
//	[magic 8B] [frame]... [sha256 trailer 32B, sealed segments only]
//
// A segment without a valid trailer is open: either the one being
// written, or one left behind by a crash.
const (
	FilePrefix     = "journal-"
	FileExtension  = ".log"
	MagicBytes     = "LSCJRNL\x01"
	MagicBytesSize = 8
	ChecksumSize   = 32

	DefaultFilePerm = 0600
	DefaultDirPerm  = 0750
)

var (
	errInvalidMagic    = errors.New("journal: invalid magic bytes")
	errChecksumInvalid = errors.New("journal: checksum mismatch")
)

func segmentFileName(id uint64) string {
	return fmt.Sprintf("%s%08d%s", FilePrefix, id, FileExtension)
}

func parseSegmentID(name string) (uint64, bool) {
	digits, ok := strings.CutPrefix(name, FilePrefix)
	if !ok {
		return 0, false
	}
	digits, ok = strings.CutSuffix(digits, FileExtension)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(digits, 10, 64)
	return id, err == nil
}

// listSegments returns the segment IDs present in dir, ascending.
func listSegments(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("journal: read dir: %w", err)
	}

	var ids []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := parseSegmentID(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// latestSegment finds the newest segment in dir and reports whether
// it is sealed. A zero ID means the directory has no segments yet.
func latestSegment(dir string) (id uint64, path string, sealed bool, err error) {
	ids, err := listSegments(dir)
	if err != nil {
		return 0, "", false, err
	}
	if len(ids) == 0 {
		return 0, "", false, nil
	}

	id = ids[len(ids)-1]
	path = filepath.Join(dir, segmentFileName(id))

	f, err := os.Open(path)
	if err != nil {
		return 0, "", false, fmt.Errorf("journal: open latest segment: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, "", false, fmt.Errorf("journal: stat latest segment: %w", err)
	}

	sealed, _, err = inspectTrailer(f, stat.Size())
	if err != nil && !errors.Is(err, errInvalidMagic) {
		return 0, "", false, err
	}
	return id, path, sealed, nil
}

// inspectTrailer checks the magic bytes and reports whether the file
// ends in a valid sha256 trailer. dataLen is the payload length
// excluding the trailer when sealed, or the full size when open.
func inspectTrailer(f *os.File, size int64) (sealed bool, dataLen int64, err error) {
	if size < MagicBytesSize {
		return false, size, nil
	}

	magic, err := readSpan(f, 0, MagicBytesSize)
	if err != nil {
		return false, 0, fmt.Errorf("journal: read magic: %w", err)
	}
	if string(magic) != MagicBytes {
		return false, 0, errInvalidMagic
	}

	// Too short to hold a trailer, so necessarily open.
	if size < MagicBytesSize+ChecksumSize {
		return false, size, nil
	}

	trailer, err := readSpan(f, size-ChecksumSize, ChecksumSize)
	if err != nil {
		return false, 0, fmt.Errorf("journal: read trailer: %w", err)
	}

	dataLen = size - ChecksumSize
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, dataLen), dataLen); err != nil {
		return false, 0, fmt.Errorf("journal: hash segment: %w", err)
	}
	if !bytes.Equal(h.Sum(nil), trailer) {
		// The last 32 bytes are frame data, not a trailer.
		return false, size, nil
	}
	return true, dataLen, nil
}

func readSpan(f *os.File, off, n int64) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(io.NewSectionReader(f, off, n), buf)
	return buf, err
}
