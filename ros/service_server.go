package ros

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type serviceResult struct {
	response []byte
	err      error
}

type defaultServiceServer struct {
	node     *defaultNode
	service  string
	srvType  ServiceType
	handler  reflect.Value
	listener *net.TCPListener
	address  string
	logger   *logrus.Entry

	mu           sync.Mutex
	conns        map[net.Conn]struct{}
	quitChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// checkServiceHandler verifies handler is a func(*T) error accepting the
// service instances created by srvType.
func checkServiceHandler(srvType ServiceType, handler interface{}) (reflect.Value, error) {
	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func {
		return reflect.Value{}, errors.Errorf("service handler must be a func, got %T", handler)
	}
	ft := fn.Type()
	srvGoType := reflect.TypeOf(srvType.NewService())
	if ft.NumIn() != 1 || !srvGoType.AssignableTo(ft.In(0)) {
		return reflect.Value{}, errors.Errorf("service handler must take a single %v", srvGoType)
	}
	if ft.NumOut() != 1 || !ft.Out(0).Implements(errorType) {
		return reflect.Value{}, errors.New("service handler must return error")
	}
	return fn, nil
}

func newDefaultServiceServer(node *defaultNode, service string, srvType ServiceType, handler interface{}) (*defaultServiceServer, error) {
	fn, err := checkServiceHandler(srvType, handler)
	if err != nil {
		return nil, err
	}
	listener, err := listenTCP(node.listenIP)
	if err != nil {
		return nil, err
	}
	server := &defaultServiceServer{
		node:     node,
		service:  service,
		srvType:  srvType,
		handler:  fn,
		listener: listener,
		address:  fmt.Sprintf("rosrpc://%s", net.JoinHostPort(node.hostname, listenerPort(listener))),
		logger:   node.logger.WithField("service", service),
		conns:    make(map[net.Conn]struct{}),
		quitChan: make(chan struct{}),
	}
	server.logger.Debugf("ServiceServer listen %s", server.address)
	_, err = callRosAPI(node.masterURI, "registerService",
		node.qualifiedName, service, server.address, node.xmlrpcURI)
	if err != nil {
		listener.Close()
		return nil, errors.Wrapf(err, "registering service %s", service)
	}
	server.wg.Add(1)
	go server.acceptLoop()
	return server, nil
}

func (s *defaultServiceServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		logger := s.logger
		close(s.quitChan)
		s.listener.Close()
		if _, err := callRosAPI(s.node.masterURI, "unregisterService",
			s.node.qualifiedName, s.service, s.address); err != nil {
			logger.Warnf("Failed unregisterService(%s): %v", s.service, err)
		}
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
		s.node.removeServer(s.service, s)
		logger.Debug("ServiceServer shut down")
	})
}

func (s *defaultServiceServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quitChan:
			default:
				s.logger.Errorf("Accept failed: %v", err)
			}
			return
		}
		s.logger.Debugf("Connected from %s", conn.RemoteAddr().String())
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.serveSession(conn)
	}
}

func (s *defaultServiceServer) serveSession(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	if err := s.handleSession(conn); err != nil {
		s.logger.Errorf("Session error: %v", err)
	}
}

func (s *defaultServiceServer) handleSession(conn net.Conn) error {
	logger := s.logger
	md5sum := s.srvType.MD5Sum()
	conn.SetDeadline(time.Now().Add(ServiceCallTimeout))

	// 1. Read request header
	reqHeaders, err := readConnectionHeader(conn)
	if err != nil {
		return errors.Wrap(err, "reading request header")
	}
	reqHeaderMap := headerMap(reqHeaders)
	logger.Debugf("TCPROS Request Header: %v", reqHeaderMap)

	probe := reqHeaderMap["probe"] == "1"
	if !probe && reqHeaderMap["md5sum"] != md5sum && reqHeaderMap["md5sum"] != "*" {
		msg := fmt.Sprintf("client wants %s/%s but service is %s/%s",
			reqHeaderMap["type"], reqHeaderMap["md5sum"], s.srvType.Name(), md5sum)
		writeConnectionHeader([]header{{"error", msg}}, conn)
		return errors.Wrap(ErrServiceTypeMismatch, msg)
	}

	// 2. Write response header
	headers := []header{
		{"service", s.service},
		{"md5sum", md5sum},
		{"type", s.srvType.Name()},
		{"callerid", s.node.qualifiedName},
	}
	if err := writeConnectionHeader(headers, conn); err != nil {
		return errors.Wrap(err, "writing response header")
	}
	if probe {
		logger.Debug("TCPROS header 'probe' detected. Session closed")
		return nil
	}

	// 3. Read request
	request, err := readFrame(conn, maxServiceResponse)
	if err != nil {
		return errors.Wrap(err, "reading request")
	}

	// 4. Run the handler on the spin loop
	resultChan := make(chan serviceResult, 1)
	if !s.node.enqueue(func() { resultChan <- s.invoke(request) }, s.quitChan) {
		return errors.New("node is shutting down")
	}
	var result serviceResult
	select {
	case result = <-resultChan:
	case <-s.quitChan:
		return nil
	case <-time.After(ServiceCallTimeout):
		result = serviceResult{err: errors.New("service callback timeout")}
	}

	// 5. Write OK byte and response
	var payload []byte
	var ok byte = 1
	if result.err != nil {
		logger.Errorf("Service callback failure: %v", result.err)
		ok = 0
		payload = []byte(result.err.Error())
	} else {
		payload = result.response
	}
	if err := binary.Write(conn, binary.LittleEndian, ok); err != nil {
		return errors.Wrap(err, "writing ok byte")
	}
	return writeFrame(conn, payload)
}

// invoke decodes the request, calls the handler and encodes the response.
func (s *defaultServiceServer) invoke(request []byte) (result serviceResult) {
	defer func() {
		if r := recover(); r != nil {
			result = serviceResult{err: fmt.Errorf("service handler panic: %v", r)}
		}
	}()
	srv := s.srvType.NewService()
	if err := srv.ReqMessage().Deserialize(bytes.NewReader(request)); err != nil {
		return serviceResult{err: errors.Wrap(err, "deserializing request")}
	}
	out := s.handler.Call([]reflect.Value{reflect.ValueOf(srv)})
	if errValue := out[0]; !errValue.IsNil() {
		return serviceResult{err: errValue.Interface().(error)}
	}
	var buf bytes.Buffer
	if err := srv.ResMessage().Serialize(&buf); err != nil {
		return serviceResult{err: errors.Wrap(err, "serializing response")}
	}
	return serviceResult{response: buf.Bytes()}
}
