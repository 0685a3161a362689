// Connection header
package ros

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// maxHeaderSize bounds connection headers read from the wire.
const maxHeaderSize = 1 << 20

type header struct {
	key   string
	value string
}

func headerMap(headers []header) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.key] = h.value
	}
	return m
}

func readConnectionHeader(r io.Reader) ([]header, error) {
	var headerSize uint32
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, err
	}
	if headerSize > maxHeaderSize {
		return nil, errors.Errorf("connection header too large: %d bytes", headerSize)
	}
	buf := make([]byte, int(headerSize))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	var headers []header
	reader := bytes.NewReader(buf)
	for reader.Len() > 0 {
		var size uint32
		if err := binary.Read(reader, binary.LittleEndian, &size); err != nil {
			return nil, errors.Wrap(err, "header field size")
		}
		if int(size) > reader.Len() {
			return nil, errors.New("header length overrun")
		}
		line := make([]byte, int(size))
		if _, err := io.ReadFull(reader, line); err != nil {
			return nil, err
		}
		sep := bytes.IndexByte(line, '=')
		if sep < 0 {
			return nil, errors.Errorf("header field %q has no '='", line)
		}
		headers = append(headers, header{string(line[:sep]), string(line[sep+1:])})
	}
	return headers, nil
}

func writeConnectionHeader(headers []header, w io.Writer) error {
	var buf bytes.Buffer
	var body bytes.Buffer
	for _, h := range headers {
		field := h.key + "=" + h.value
		binary.Write(&body, binary.LittleEndian, uint32(len(field)))
		body.WriteString(field)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(body.Len()))
	buf.Write(body.Bytes())
	_, err := w.Write(buf.Bytes())
	return err
}
