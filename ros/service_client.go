package ros

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrServiceNotFound is returned when the master does not know the service.
	ErrServiceNotFound = errors.New("service not found")
	// ErrServiceTypeMismatch is returned when the server announces another
	// type or md5sum than the client expects.
	ErrServiceTypeMismatch = errors.New("incompatible service type")
	// ErrServiceNotAvailable is returned by WaitForService on timeout.
	ErrServiceNotAvailable = errors.New("service not available")
)

// ServiceError carries the error message a service server answered with.
type ServiceError struct {
	Service string
	Message string
}

func (e *ServiceError) Error() string {
	return "service " + e.Service + " failed: " + e.Message
}

const (
	// ServiceCallTimeout bounds one request/response exchange.
	ServiceCallTimeout = 10 * time.Second
	waitForServicePoll = 100 * time.Millisecond
	maxServiceResponse = 64 << 20
)

type defaultServiceClient struct {
	logger    *logrus.Entry
	service   string
	srvType   ServiceType
	masterURI string
	nodeID    string
}

func newDefaultServiceClient(logger *logrus.Entry, nodeID string, masterURI string, service string, srvType ServiceType) *defaultServiceClient {
	return &defaultServiceClient{
		logger:    logger.WithField("service", service),
		service:   service,
		srvType:   srvType,
		masterURI: masterURI,
		nodeID:    nodeID,
	}
}

// lookup asks the master for the rosrpc:// address of the service.
func (c *defaultServiceClient) lookup() (string, error) {
	result, err := callRosAPI(c.masterURI, "lookupService", c.nodeID, c.service)
	if err != nil {
		if _, ok := err.(*APIError); ok {
			return "", errors.Wrap(ErrServiceNotFound, c.service)
		}
		return "", errors.Wrapf(err, "lookupService %s", c.service)
	}
	serviceRawURL, ok := result.(string)
	if !ok {
		return "", errors.Errorf("lookupService %s returned %T", c.service, result)
	}
	serviceURL, err := url.Parse(serviceRawURL)
	if err != nil {
		return "", errors.Wrapf(err, "service address %q", serviceRawURL)
	}
	return serviceURL.Host, nil
}

func (c *defaultServiceClient) WaitForService(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := c.lookup()
		if err == nil {
			return nil
		}
		if errors.Cause(err) != ErrServiceNotFound {
			return err
		}
		if time.Now().After(deadline) {
			return errors.Wrapf(ErrServiceNotAvailable, "%s after %v", c.service, timeout)
		}
		time.Sleep(waitForServicePoll)
	}
}

func (c *defaultServiceClient) Call(srv Service) error {
	logger := c.logger

	address, err := c.lookup()
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("tcp", address, ServiceCallTimeout)
	if err != nil {
		return errors.Wrapf(err, "connecting to service %s", c.service)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(ServiceCallTimeout))

	// 1. Write connection header
	md5sum := c.srvType.MD5Sum()
	msgType := c.srvType.Name()
	headers := []header{
		{"service", c.service},
		{"md5sum", md5sum},
		{"type", msgType},
		{"callerid", c.nodeID},
	}
	logger.Debug("TCPROS Connection Header")
	for _, h := range headers {
		logger.Debugf("  `%s` = `%s`", h.key, h.value)
	}
	if err := writeConnectionHeader(headers, conn); err != nil {
		return errors.Wrap(err, "writing connection header")
	}

	// 2. Read response header
	resHeaders, err := readConnectionHeader(conn)
	if err != nil {
		return errors.Wrap(err, "reading response header")
	}
	resHeaderMap := headerMap(resHeaders)
	logger.Debugf("TCPROS Response Header: %v", resHeaderMap)
	if msg, ok := resHeaderMap["error"]; ok {
		return errors.Wrap(ErrServiceTypeMismatch, msg)
	}
	if resHeaderMap["md5sum"] != md5sum {
		return errors.Wrapf(ErrServiceTypeMismatch, "%s: expected %s/%s but got %s/%s",
			c.service, msgType, md5sum, resHeaderMap["type"], resHeaderMap["md5sum"])
	}

	// 3. Send request
	var buf bytes.Buffer
	if err := srv.ReqMessage().Serialize(&buf); err != nil {
		return errors.Wrap(err, "serializing request")
	}
	if err := writeFrame(conn, buf.Bytes()); err != nil {
		return errors.Wrap(err, "writing request")
	}

	// 4. Read OK byte
	var ok byte
	if err := binary.Read(conn, binary.LittleEndian, &ok); err != nil {
		return errors.Wrap(err, "reading ok byte")
	}
	body, err := readFrame(conn, maxServiceResponse)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if ok == 0 {
		return &ServiceError{Service: c.service, Message: string(body)}
	}

	// 5. Decode response
	if err := srv.ResMessage().Deserialize(bytes.NewReader(body)); err != nil {
		return errors.Wrap(err, "deserializing response")
	}
	return nil
}

func (*defaultServiceClient) Shutdown() {}

// writeFrame writes a length prefixed TCPROS frame.
func writeFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	_, err := w.Write(frame)
	return err
}

// readFrame reads a length prefixed TCPROS frame of at most limit bytes.
func readFrame(r io.Reader, limit uint32) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > limit {
		return nil, errors.Errorf("frame of %d bytes exceeds limit %d", size, limit)
	}
	buf := make([]byte, int(size))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
