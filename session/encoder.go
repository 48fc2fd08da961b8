package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionV1 = 1

// Encode serializes a [Session] into the versioned binary blob stored in
// Redis. The session ID is not part of the blob; the Redis key carries it.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionV1)

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if len(s.Role) > 255 {
		return nil, errors.New("role too long")
	}
	buf.WriteByte(byte(len(s.Role)))
	buf.WriteString(s.Role)

	if len(s.IP) > 255 {
		return nil, errors.New("ip too long")
	}
	buf.WriteByte(byte(len(s.IP)))
	buf.WriteString(s.IP)

	if len(s.UserAgent) > 255 {
		return nil, errors.New("user agent too long")
	}
	buf.WriteByte(byte(len(s.UserAgent)))
	buf.WriteString(s.UserAgent)

	buf.Write(s.TokenHash[:])

	if s.Active {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastActivity); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionV1 {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	readString := func() (string, error) {
		n, err := reader.ReadByte()
		if err != nil {
			return "", err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(reader, b); err != nil {
			return "", err
		}
		return string(b), nil
	}

	if s.UserID, err = readString(); err != nil {
		return nil, err
	}
	if s.Role, err = readString(); err != nil {
		return nil, err
	}
	if s.IP, err = readString(); err != nil {
		return nil, err
	}
	if s.UserAgent, err = readString(); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(reader, s.TokenHash[:]); err != nil {
		return nil, err
	}

	active, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Active = active == 1

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.LastActivity); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return s, nil
}
