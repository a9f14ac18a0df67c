package journal

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/lockscope-go/internal/core/domain"
	"github.com/yndnr/lockscope-go/pkg/crypto/adaptive"
)

// classHash derives the dictionary key for a synchronizer class name.
func classHash(name string) uint64 {
	return murmur3.Sum64([]byte(name))
}

// wireEvent is the persisted shape of a contention event. The class
// name is replaced by its dictionary hash.
type wireEvent struct {
	Addr      uint64 `json:"addr"`
	Kind      uint8  `json:"kind"`
	ClassHash uint64 `json:"class,omitempty"`
	ThreadID  int32  `json:"tid"`
	Thread    string `json:"thread,omitempty"`
	Holder    int32  `json:"holder"`
	Start     int64  `json:"start"`
	Wake      int64  `json:"wake"`
	Duration  int64  `json:"dur"`
}

type wirePayload struct {
	ID        string     `json:"id"`
	Timestamp int64      `json:"ts"`
	Event     *wireEvent `json:"event,omitempty"`

	// EncryptedEvent is base64 of adaptive.Cipher.Encrypt(eventJSON).
	EncryptedEvent string `json:"enc_event,omitempty"`
}

// decodedFrame is the result of decoding one frame; exactly one of
// Def and Rec is set depending on Type.
type decodedFrame struct {
	Type FrameType
	Def  classDef

	Rec       *Record
	ClassHash uint64
}

func encodeClassDefFrame(def classDef) ([]byte, error) {
	payload, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("journal: marshal class def: %w", err)
	}
	return frameBytes(FrameTypeClassDef, payload), nil
}

func encodeRecordFrame(rec *Record, cipher adaptive.Cipher) ([]byte, error) {
	if rec == nil || rec.Event == nil {
		return nil, fmt.Errorf("journal: record is nil")
	}

	ev := rec.Event
	we := wireEvent{
		Addr:     ev.LockAddress,
		Kind:     uint8(ev.Kind),
		ThreadID: ev.ThreadID,
		Thread:   ev.ThreadName,
		Holder:   ev.HolderThreadID,
		Start:    ev.WaitStartNanos,
		Wake:     ev.WakeNanos,
		Duration: ev.WaitDurationNanos,
	}
	if ev.ClassName != "" {
		we.ClassHash = classHash(ev.ClassName)
	}

	p := wirePayload{
		ID:        rec.ID,
		Timestamp: rec.WrittenAt,
	}

	if cipher == nil {
		p.Event = &we
	} else {
		plain, err := json.Marshal(&we)
		if err != nil {
			return nil, fmt.Errorf("journal: marshal event: %w", err)
		}
		encrypted, err := cipher.Encrypt(plain, nil)
		if err != nil {
			return nil, fmt.Errorf("journal: encrypt event: %w", err)
		}
		p.EncryptedEvent = base64.StdEncoding.EncodeToString(encrypted)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("journal: marshal payload: %w", err)
	}
	return frameBytes(FrameTypeRecord, payload), nil
}

// frameBytes assembles [length:4][crc32:4][type:1][payload].
// Length covers everything after itself; the CRC covers type+payload.
func frameBytes(ft FrameType, payload []byte) []byte {
	typeByte := []byte{byte(ft)}
	crc := crc32.ChecksumIEEE(append(typeByte, payload...))

	length := uint32(4 + 1 + len(payload))
	out := make([]byte, 0, 4+int(length))

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], length)
	out = append(out, header[:]...)

	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	out = append(out, crcBuf[:]...)

	out = append(out, typeByte...)
	out = append(out, payload...)
	return out
}

func decodeFrame(frame []byte, cipher adaptive.Cipher) (*decodedFrame, error) {
	// Frame layout after the length prefix: [crc32:4][type:1][payload...]
	if len(frame) < 5 {
		return nil, ErrCorruptedFrame
	}

	wantCRC := binary.BigEndian.Uint32(frame[:4])
	typeByte := frame[4]
	payload := frame[5:]

	gotCRC := crc32.ChecksumIEEE(append([]byte{typeByte}, payload...))
	if gotCRC != wantCRC {
		return nil, ErrChecksumMismatch
	}

	switch FrameType(typeByte) {
	case FrameTypeClassDef:
		var def classDef
		if err := json.Unmarshal(payload, &def); err != nil {
			return nil, fmt.Errorf("journal: unmarshal class def: %w", err)
		}
		return &decodedFrame{Type: FrameTypeClassDef, Def: def}, nil

	case FrameTypeRecord:
		var p wirePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("journal: unmarshal payload: %w", err)
		}

		we := p.Event
		if we == nil {
			if p.EncryptedEvent == "" {
				return nil, fmt.Errorf("journal: missing event payload")
			}
			if cipher == nil {
				return nil, fmt.Errorf("journal: encrypted record requires cipher")
			}
			ciphertext, err := base64.StdEncoding.DecodeString(p.EncryptedEvent)
			if err != nil {
				return nil, fmt.Errorf("journal: decode encrypted event: %w", err)
			}
			plain, err := cipher.Decrypt(ciphertext, nil)
			if err != nil {
				return nil, fmt.Errorf("journal: decrypt event: %w", err)
			}
			we = &wireEvent{}
			if err := json.Unmarshal(plain, we); err != nil {
				return nil, fmt.Errorf("journal: unmarshal event: %w", err)
			}
		}

		rec := &Record{
			ID:        p.ID,
			WrittenAt: p.Timestamp,
			Event: &domain.ContentionEvent{
				LockAddress:       we.Addr,
				Kind:              domain.SyncKind(we.Kind),
				ThreadID:          we.ThreadID,
				ThreadName:        we.Thread,
				HolderThreadID:    we.Holder,
				WaitStartNanos:    we.Start,
				WakeNanos:         we.Wake,
				WaitDurationNanos: we.Duration,
			},
		}
		return &decodedFrame{Type: FrameTypeRecord, Rec: rec, ClassHash: we.ClassHash}, nil

	default:
		return nil, ErrInvalidFrameType
	}
}
