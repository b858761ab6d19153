package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const (
	sessionFormatVersionCurrent = 2
	sessionFormatVersionV1      = 1
)

// CurrentSchemaVersion is the version byte written by Encode.
const CurrentSchemaVersion = sessionFormatVersionCurrent

const maxTokenLen = 1<<16 - 1

var errInvalidVersion = errors.New("invalid session version")

// Encode serializes s in the current binary schema.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if err := writeToken(&buf, s.AccessToken); err != nil {
		return nil, errors.New("access token too long")
	}
	if err := writeToken(&buf, s.RefreshToken); err != nil {
		return nil, errors.New("refresh token too long")
	}

	if s.LoggedIn {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	var updated int64
	if !s.UpdatedAt.IsZero() {
		updated = s.UpdatedAt.UnixMilli()
	}
	if err := binary.Write(&buf, binary.BigEndian, updated); err != nil {
		return nil, err
	}

	// v2
	if len(s.Username) > 255 {
		return nil, errors.New("username too long")
	}
	buf.WriteByte(byte(len(s.Username)))
	buf.WriteString(s.Username)

	return buf.Bytes(), nil
}

// Decode parses any known schema version.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent && version != sessionFormatVersionV1 {
		return nil, errInvalidVersion
	}

	s := &Session{}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	s.UserID = string(userID)

	if s.AccessToken, err = readToken(reader); err != nil {
		return nil, err
	}
	if s.RefreshToken, err = readToken(reader); err != nil {
		return nil, err
	}

	loggedIn, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.LoggedIn = loggedIn == 1

	var updated int64
	if err := binary.Read(reader, binary.BigEndian, &updated); err != nil {
		return nil, err
	}
	if updated != 0 {
		s.UpdatedAt = time.UnixMilli(updated)
	}

	if version == sessionFormatVersionCurrent {
		nameLen, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(reader, name); err != nil {
			return nil, err
		}
		s.Username = string(name)
	}

	return s, nil
}

func writeToken(buf *bytes.Buffer, token string) error {
	if len(token) > maxTokenLen {
		return errors.New("token too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(token))); err != nil {
		return err
	}
	buf.WriteString(token)
	return nil
}

func readToken(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
