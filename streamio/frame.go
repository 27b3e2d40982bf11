package streamio

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// WriteFrame writes payload to w as a big-endian u32 length prefix
// followed by that many bytes of JSON.
func WriteFrame(w io.Writer, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "streamio: marshaling payload")
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "streamio: writing frame length")
	}
	if _, err := w.Write(body); err != nil {
		return errors.Wrap(err, "streamio: writing frame body")
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame from r.
func ReadFrame(r io.Reader) (Payload, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Payload{}, errors.Wrap(err, "streamio: reading frame length")
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Payload{}, errors.Wrap(err, "streamio: reading frame body")
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, errors.Wrap(err, "streamio: unmarshaling payload")
	}
	return p, nil
}
