package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/yndnr/lockscope-go/pkg/crypto/adaptive"
)

// ErrCorrupted marks a segment whose framing cannot be trusted.
var ErrCorrupted = errors.New("journal: corrupted segment")

// Reader streams records out of a journal directory, oldest segment
// first. Dictionary frames are resolved transparently: the class map
// accumulates across segments, so a record written right after a
// rotation still gets its class name. Damaged segments are skipped
// rather than aborting the stream.
type Reader struct {
	dir    string
	cipher adaptive.Cipher

	ids  []uint64
	next int

	classes map[uint64]string

	file      *os.File
	frames    *bufio.Reader
	startAt   int64
	magicDone bool
}

// NewReader creates a journal reader for a directory.
func NewReader(dir string, cipher adaptive.Cipher) (*Reader, error) {
	ids, err := listSegments(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return &Reader{
		dir:     dir,
		cipher:  cipher,
		ids:     ids,
		classes: make(map[uint64]string),
	}, nil
}

// Seek positions the reader at a composite offset as produced by
// Writer.CurrentOffset: (segmentID<<32 | offsetWithinSegment).
func (r *Reader) Seek(offset uint64) error {
	segID := offset >> 32

	i := 0
	for i < len(r.ids) && r.ids[i] < segID {
		i++
	}

	r.reset()
	r.next = i
	r.startAt = int64(uint32(offset))
	return nil
}

// Read returns the next record, or io.EOF after the last segment.
func (r *Reader) Read() (*Record, error) {
	for {
		if r.frames == nil {
			if err := r.advance(); err != nil {
				return nil, err
			}
		}

		if !r.magicDone {
			if err := r.consumeMagic(); err != nil {
				if errors.Is(err, errInvalidMagic) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					r.reset()
					continue
				}
				return nil, err
			}
			r.magicDone = true
		}

		df, err := r.nextFrame()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			// Segment exhausted, or truncated by a crash mid-write.
			r.reset()
			continue
		case errors.Is(err, ErrCorruptedFrame), errors.Is(err, ErrChecksumMismatch), errors.Is(err, ErrInvalidFrameType):
			r.reset()
			continue
		default:
			return nil, err
		}

		if df.Type == FrameTypeClassDef {
			r.classes[df.Def.Hash] = df.Def.Name
			continue
		}

		rec := df.Rec
		if df.ClassHash != 0 {
			rec.Event.ClassName = r.classes[df.ClassHash]
		}
		return rec, nil
	}
}

// ReadAll drains the journal into memory.
func (r *Reader) ReadAll() ([]*Record, error) {
	var out []*Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Close releases the currently open segment file.
func (r *Reader) Close() error {
	return r.reset()
}

// advance opens the next segment in id order, bounding reads to the
// payload so a sealed segment's trailer never reaches the frame
// decoder.
func (r *Reader) advance() error {
	r.reset()

	if r.next >= len(r.ids) {
		return io.EOF
	}
	id := r.ids[r.next]
	r.next++

	f, err := os.Open(filepath.Join(r.dir, segmentFileName(id)))
	if err != nil {
		return err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	sealed, dataLen, err := inspectTrailer(f, stat.Size())
	if err != nil {
		f.Close()
		return err
	}
	if sealed && dataLen < MagicBytesSize {
		f.Close()
		return ErrCorrupted
	}
	if !sealed {
		dataLen = stat.Size()
	}

	r.file = f
	r.frames = bufio.NewReader(io.NewSectionReader(f, r.startAt, dataLen-r.startAt))
	r.magicDone = r.startAt != 0

	// A Seek offset applies only to its target segment.
	r.startAt = 0
	return nil
}

func (r *Reader) consumeMagic() error {
	magic := make([]byte, MagicBytesSize)
	if _, err := io.ReadFull(r.frames, magic); err != nil {
		return err
	}
	if string(magic) != MagicBytes {
		return errInvalidMagic
	}
	return nil
}

func (r *Reader) nextFrame() (*decodedFrame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.frames, lenBuf[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < 5 {
		return nil, ErrCorruptedFrame
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r.frames, frame); err != nil {
		return nil, err
	}
	return decodeFrame(frame, r.cipher)
}

func (r *Reader) reset() error {
	r.frames = nil
	r.magicDone = false

	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
