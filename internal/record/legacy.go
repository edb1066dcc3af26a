package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/payload"
)

// legacyFixedSize is TS(u128) + ID + PH_LEN + NO_LEN.
const legacyFixedSize = 16 + 8 + 2 + 2

const signedOffPrefix = "Signed-off-by: "

func decodeLegacy(p []byte) (event.Event, error) {
	if len(p) < legacyFixedSize {
		return event.Event{}, fmt.Errorf("%w: legacy payload has %d bytes, need %d", ErrInvalid, len(p), legacyFixedSize)
	}

	lo := binary.LittleEndian.Uint64(p[0:8])
	hi := binary.LittleEndian.Uint64(p[8:16])
	if hi != 0 || lo > math.MaxInt64 {
		return event.Event{}, fmt.Errorf("%w: legacy timestamp out of range", ErrInvalid)
	}
	id := binary.LittleEndian.Uint64(p[16:24])
	phLen := int(binary.LittleEndian.Uint16(p[24:26]))
	noLen := int(binary.LittleEndian.Uint16(p[26:28]))

	if want := legacyFixedSize + phLen + noLen; want != len(p) {
		return event.Event{}, fmt.Errorf("%w: field lengths sum to %d, payload is %d", ErrInvalid, want, len(p))
	}
	if id == 0 {
		return event.Event{}, fmt.Errorf("%w: zero id", ErrInvalid)
	}

	ph := p[legacyFixedSize : legacyFixedSize+phLen]
	no := p[legacyFixedSize+phLen:]
	if !utf8.Valid(ph) || !utf8.Valid(no) {
		return event.Event{}, fmt.Errorf("%w: text field is not valid UTF-8", ErrInvalid)
	}
	kind := string(ph)
	if strings.TrimSpace(kind) == "" {
		return event.Event{}, fmt.Errorf("%w: empty kind", ErrInvalid)
	}

	ev := event.Event{
		ID:        id,
		Kind:      kind,
		Timestamp: event.NormalizeTimestamp(int64(lo), event.UnitNanos),
		Legacy:    true,
	}
	if msg, ok := ParseCommitMessage(kind, string(no)); ok {
		ev.Content = payload.NewObject(
			payload.P(event.KeySummary, payload.String(msg.Summary)),
			payload.P(event.KeyBody, payload.String(msg.Body)),
		)
		ev.Author = msg.Author
		ev.AuthorEmail = msg.Email
	} else {
		ev.Content = payload.NewObject(payload.P(event.KeyText, payload.String(string(no))))
	}
	return ev, nil
}

// CommitMessage is the parsed form of the original tool's commit text:
//
//	<kind> <summary>
//
//		<body>
//
//	Signed-off-by: <author> <<email>>
type CommitMessage struct {
	Summary string
	Body    string
	Author  string
	Email   string
}

// ParseCommitMessage recognizes the legacy commit template. It reports false
// when text does not follow it, in which case the caller keeps the raw text.
func ParseCommitMessage(kind, text string) (CommitMessage, bool) {
	head, rest, ok := strings.Cut(text, "\n\n")
	if !ok {
		return CommitMessage{}, false
	}
	summary, ok := strings.CutPrefix(head, kind+" ")
	if !ok {
		return CommitMessage{}, false
	}

	var msg CommitMessage
	msg.Summary = strings.TrimSpace(summary)

	i := strings.LastIndex(rest, signedOffPrefix)
	if i < 0 || (i > 0 && rest[i-1] != '\n') {
		return CommitMessage{}, false
	}
	msg.Body = strings.TrimSpace(rest[:i])

	sign := strings.TrimSpace(rest[i+len(signedOffPrefix):])
	if lt := strings.LastIndexByte(sign, '<'); lt >= 0 && strings.HasSuffix(sign, ">") {
		msg.Author = strings.TrimSpace(sign[:lt])
		msg.Email = sign[lt+1 : len(sign)-1]
	} else {
		msg.Author = sign
	}
	return msg, true
}

// EncodeLegacy builds a version 1 frame. The current writer never produces
// version 1 cubes; this exists for fixtures and migration tests.
func EncodeLegacy(id uint64, nanos int64, kind, text string) (Frame, error) {
	if len(kind) > math.MaxUint16 || len(text) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: legacy field exceeds %d bytes", ErrInvalid, math.MaxUint16)
	}
	buf := make([]byte, legacyFixedSize, legacyFixedSize+len(kind)+len(text))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(nanos))
	binary.LittleEndian.PutUint64(buf[16:24], id)
	binary.LittleEndian.PutUint16(buf[24:26], uint16(len(kind)))
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(text)))
	buf = append(buf, kind...)
	buf = append(buf, text...)
	return seal(buf), nil
}

// EncodeLegacyHeader returns a version 1 header for fixtures.
func EncodeLegacyHeader() []byte {
	buf := EncodeHeader()
	binary.LittleEndian.PutUint16(buf[4:6], VersionLegacy)
	return buf
}
