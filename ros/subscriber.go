package ros

import (
	"bytes"
	"fmt"
	"net"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const maxMessageSize = 64 << 20

// checkSubscriberCallback accepts functions of zero, one or two arguments.
func checkSubscriberCallback(callback interface{}) error {
	fn := reflect.ValueOf(callback)
	if fn.Kind() != reflect.Func {
		return errors.Errorf("subscriber callback must be a func, got %T", callback)
	}
	if fn.Type().NumIn() > 2 {
		return errors.New("subscriber callback takes at most (msg, MessageEvent)")
	}
	return nil
}

type publisherConn struct {
	quitChan chan struct{}
	conn     net.Conn
}

// The subscriber keeps one TCPROS connection per known publisher.
type defaultSubscriber struct {
	node    *defaultNode
	topic   string
	msgType MessageType
	logger  *logrus.Entry

	mu           sync.Mutex
	callbacks    []reflect.Value
	connections  map[string]*publisherConn
	closed       bool
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func newDefaultSubscriber(node *defaultNode, topic string, msgType MessageType, callback interface{}) *defaultSubscriber {
	return &defaultSubscriber{
		node:        node,
		topic:       topic,
		msgType:     msgType,
		logger:      node.logger.WithField("topic", topic),
		callbacks:   []reflect.Value{reflect.ValueOf(callback)},
		connections: make(map[string]*publisherConn),
	}
}

func (sub *defaultSubscriber) addCallback(callback interface{}) {
	sub.mu.Lock()
	sub.callbacks = append(sub.callbacks, reflect.ValueOf(callback))
	sub.mu.Unlock()
}

// updatePublishers reconciles connections with the publisher list the
// master announced.
func (sub *defaultSubscriber) updatePublishers(pubURIs []string) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	wanted := make(map[string]bool, len(pubURIs))
	for _, uri := range pubURIs {
		wanted[uri] = true
	}
	for uri, pc := range sub.connections {
		if !wanted[uri] {
			sub.logger.Debugf("Publisher %s went away", uri)
			pc.close()
			delete(sub.connections, uri)
		}
	}
	for uri := range wanted {
		if _, ok := sub.connections[uri]; ok {
			continue
		}
		pc := &publisherConn{quitChan: make(chan struct{})}
		sub.connections[uri] = pc
		sub.wg.Add(1)
		go sub.connectPublisher(uri, pc)
	}
}

func (pc *publisherConn) close() {
	close(pc.quitChan)
	if pc.conn != nil {
		pc.conn.Close()
	}
}

func (sub *defaultSubscriber) connectPublisher(pubURI string, pc *publisherConn) {
	defer sub.wg.Done()
	defer func() {
		sub.mu.Lock()
		if sub.connections[pubURI] == pc {
			delete(sub.connections, pubURI)
		}
		sub.mu.Unlock()
	}()
	logger := sub.logger.WithField("publisher", pubURI)

	protocols := []interface{}{[]interface{}{"TCPROS"}}
	result, err := callRosAPI(pubURI, "requestTopic", sub.node.qualifiedName, sub.topic, protocols)
	if err != nil {
		logger.Errorf("requestTopic failed: %v", err)
		return
	}
	params, ok := result.([]interface{})
	if !ok || len(params) < 3 || params[0] != "TCPROS" {
		logger.Warnf("Unsupported protocol reply %v", result)
		return
	}
	host, _ := params[1].(string)
	port, _ := params[2].(int32)
	address := net.JoinHostPort(host, fmt.Sprint(port))

	conn, err := net.DialTimeout("tcp", address, ServiceCallTimeout)
	if err != nil {
		logger.Errorf("Failed to connect to %s: %v", address, err)
		return
	}
	sub.mu.Lock()
	select {
	case <-pc.quitChan:
		sub.mu.Unlock()
		conn.Close()
		return
	default:
		pc.conn = conn
	}
	sub.mu.Unlock()
	defer conn.Close()

	if err := sub.receive(conn, pc.quitChan, logger); err != nil {
		select {
		case <-pc.quitChan:
		default:
			logger.Errorf("Connection lost: %v", err)
		}
	}
}

func (sub *defaultSubscriber) receive(conn net.Conn, quitChan chan struct{}, logger *logrus.Entry) error {
	md5sum := sub.msgType.MD5Sum()
	msgType := sub.msgType.Name()

	// 1. Write connection header
	conn.SetDeadline(time.Now().Add(ServiceCallTimeout))
	headers := []header{
		{"topic", sub.topic},
		{"md5sum", md5sum},
		{"type", msgType},
		{"callerid", sub.node.qualifiedName},
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
	if msg, ok := resHeaderMap["error"]; ok {
		return errors.New(msg)
	}
	if resHeaderMap["type"] != msgType || resHeaderMap["md5sum"] != md5sum {
		return errors.Errorf("incompatible message type %s/%s", resHeaderMap["type"], resHeaderMap["md5sum"])
	}
	conn.SetDeadline(time.Time{})
	logger.Debug("Start receiving messages...")

	// 3. Read messages until the connection closes
	for {
		body, err := readFrame(conn, maxMessageSize)
		if err != nil {
			return err
		}
		event := MessageEvent{
			PublisherName:    resHeaderMap["callerid"],
			ReceiptTime:      time.Now(),
			ConnectionHeader: resHeaderMap,
		}
		job := sub.dispatchJob(body, event)
		select {
		case sub.node.jobChan <- job:
		case <-quitChan:
			return nil
		case <-sub.node.quitChan:
			return nil
		}
	}
}

// dispatchJob returns the spin loop job running every callback for one message.
func (sub *defaultSubscriber) dispatchJob(body []byte, event MessageEvent) func() {
	sub.mu.Lock()
	callbacks := make([]reflect.Value, len(sub.callbacks))
	copy(callbacks, sub.callbacks)
	sub.mu.Unlock()
	return func() {
		m := sub.msgType.NewMessage()
		if err := m.Deserialize(bytes.NewReader(body)); err != nil {
			sub.logger.Errorf("Failed to deserialize %s: %v", sub.msgType.Name(), err)
			return
		}
		args := []reflect.Value{reflect.ValueOf(m), reflect.ValueOf(event)}
		for _, fn := range callbacks {
			fn.Call(args[:fn.Type().NumIn()])
		}
	}
}

// stop closes every publisher connection without talking to the master.
func (sub *defaultSubscriber) stop() {
	sub.mu.Lock()
	sub.closed = true
	for uri, pc := range sub.connections {
		pc.close()
		delete(sub.connections, uri)
	}
	sub.mu.Unlock()
	sub.wg.Wait()
}

func (sub *defaultSubscriber) Shutdown() {
	sub.shutdownOnce.Do(func() {
		_, err := callRosAPI(sub.node.masterURI, "unregisterSubscriber",
			sub.node.qualifiedName, sub.topic, sub.node.xmlrpcURI)
		if err != nil {
			sub.logger.Warnf("Failed unregisterSubscriber(%s): %v", sub.topic, err)
		}
		sub.stop()
		sub.node.removeSubscriber(sub.topic, sub)
	})
}

func (sub *defaultSubscriber) GetNumPublishers() int {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return len(sub.connections)
}
