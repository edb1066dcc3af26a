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

// fixedSize is UNIT + TS + ID + PARENT + KIND_LEN + AUTHOR_LEN + EMAIL_LEN + CONTENT_LEN.
const fixedSize = 1 + 8 + 8 + 8 + 2 + 2 + 2 + 4

// Encode serializes an event into a version 2 frame.
// Content is written as canonical JSON; a nil Content is written as {}.
func Encode(ev event.Event) (Frame, error) {
	if ev.ID == 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalid)
	}
	if ev.Parent >= ev.ID {
		return nil, fmt.Errorf("%w: parent %d not below id %d", ErrInvalid, ev.Parent, ev.ID)
	}
	if strings.TrimSpace(ev.Kind) == "" {
		return nil, fmt.Errorf("%w: empty kind", ErrInvalid)
	}
	for name, s := range map[string]string{"kind": ev.Kind, "author": ev.Author, "email": ev.AuthorEmail} {
		if len(s) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrInvalid, name, len(s), math.MaxUint16)
		}
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalid, name)
		}
	}

	content := ev.Content
	if content == nil {
		content = payload.Object{}
	}
	body, err := payload.MarshalCanonical(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	size := fixedSize + len(ev.Kind) + len(ev.Author) + len(ev.AuthorEmail) + len(body)
	if size+ChecksumSize > MaxFrameLength {
		return nil, fmt.Errorf("%w: payload is %d bytes, limit %d", ErrInvalid, size, MaxFrameLength-ChecksumSize)
	}

	buf := make([]byte, fixedSize, size)
	buf[0] = byte(event.UnitMillis)
	binary.LittleEndian.PutUint64(buf[1:9], uint64(ev.Timestamp))
	binary.LittleEndian.PutUint64(buf[9:17], ev.ID)
	binary.LittleEndian.PutUint64(buf[17:25], ev.Parent)
	binary.LittleEndian.PutUint16(buf[25:27], uint16(len(ev.Kind)))
	binary.LittleEndian.PutUint16(buf[27:29], uint16(len(ev.Author)))
	binary.LittleEndian.PutUint16(buf[29:31], uint16(len(ev.AuthorEmail)))
	binary.LittleEndian.PutUint32(buf[31:35], uint32(len(body)))
	buf = append(buf, ev.Kind...)
	buf = append(buf, ev.Author...)
	buf = append(buf, ev.AuthorEmail...)
	buf = append(buf, body...)

	return seal(buf), nil
}

// Decode verifies and decodes one complete frame written with the given
// cube version. The returned event carries the frame's checksum; its Offset is
// left for the caller.
func Decode(f Frame, version uint16) (event.Event, error) {
	if err := VerifyFrame(f, version); err != nil {
		return event.Event{}, err
	}

	var (
		ev  event.Event
		err error
	)
	switch version {
	case VersionLegacy:
		ev, err = decodeLegacy(f.Payload())
	case VersionCurrent:
		ev, err = decodePayload(f.Payload())
	default:
		return event.Event{}, fmt.Errorf("%w: unsupported cube version %d", ErrInvalid, version)
	}
	if err != nil {
		return event.Event{}, err
	}
	ev.Checksum = f.Checksum()
	return ev, nil
}

func decodePayload(p []byte) (event.Event, error) {
	if len(p) < fixedSize {
		return event.Event{}, fmt.Errorf("%w: payload has %d bytes, need %d", ErrInvalid, len(p), fixedSize)
	}

	unit := event.Unit(p[0])
	if !unit.Valid() {
		return event.Event{}, fmt.Errorf("%w: unknown timestamp unit %d", ErrInvalid, p[0])
	}
	raw := int64(binary.LittleEndian.Uint64(p[1:9]))
	id := binary.LittleEndian.Uint64(p[9:17])
	parent := binary.LittleEndian.Uint64(p[17:25])
	kindLen := int(binary.LittleEndian.Uint16(p[25:27]))
	authorLen := int(binary.LittleEndian.Uint16(p[27:29]))
	emailLen := int(binary.LittleEndian.Uint16(p[29:31]))
	contentLen := int(binary.LittleEndian.Uint32(p[31:35]))

	if want := fixedSize + kindLen + authorLen + emailLen + contentLen; want != len(p) {
		return event.Event{}, fmt.Errorf("%w: field lengths sum to %d, payload is %d", ErrInvalid, want, len(p))
	}
	if id == 0 {
		return event.Event{}, fmt.Errorf("%w: zero id", ErrInvalid)
	}

	rest := p[fixedSize:]
	kind, rest := string(rest[:kindLen]), rest[kindLen:]
	author, rest := string(rest[:authorLen]), rest[authorLen:]
	email, rest := string(rest[:emailLen]), rest[emailLen:]

	if strings.TrimSpace(kind) == "" {
		return event.Event{}, fmt.Errorf("%w: empty kind", ErrInvalid)
	}
	if !utf8.ValidString(kind) || !utf8.ValidString(author) || !utf8.ValidString(email) {
		return event.Event{}, fmt.Errorf("%w: text field is not valid UTF-8", ErrInvalid)
	}
	content, err := payload.ParseObject(rest)
	if err != nil {
		return event.Event{}, fmt.Errorf("%w: content: %v", ErrInvalid, err)
	}

	return event.Event{
		ID:          id,
		Parent:      parent,
		Kind:        kind,
		Content:     content,
		Author:      author,
		AuthorEmail: email,
		Timestamp:   event.NormalizeTimestamp(raw, unit),
	}, nil
}
