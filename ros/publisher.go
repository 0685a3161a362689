package ros

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	publisherQueueSize  = 100
	publishWriteTimeout = time.Second
)

// ErrPublisherClosed is returned by Publish after Shutdown.
var ErrPublisherClosed = errors.New("publisher is shut down")

type defaultPublisher struct {
	node     *defaultNode
	topic    string
	msgType  MessageType
	listener *net.TCPListener
	logger   *logrus.Entry

	mu           sync.Mutex
	sessions     map[*remoteSubscriberSession]struct{}
	closed       bool
	quitChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func newDefaultPublisher(node *defaultNode, topic string, msgType MessageType) (*defaultPublisher, error) {
	listener, err := listenTCP(node.listenIP)
	if err != nil {
		return nil, err
	}
	pub := &defaultPublisher{
		node:     node,
		topic:    topic,
		msgType:  msgType,
		listener: listener,
		logger:   node.logger.WithField("topic", topic),
		sessions: make(map[*remoteSubscriberSession]struct{}),
		quitChan: make(chan struct{}),
	}
	pub.wg.Add(1)
	go pub.listenRemoteSubscriber()
	return pub, nil
}

func (pub *defaultPublisher) port() string {
	return listenerPort(pub.listener)
}

func (pub *defaultPublisher) listenRemoteSubscriber() {
	defer pub.wg.Done()
	pub.logger.Debugf("Start listen %s.", pub.listener.Addr().String())
	for {
		conn, err := pub.listener.Accept()
		if err != nil {
			select {
			case <-pub.quitChan:
			default:
				pub.logger.Errorf("Accept failed: %v", err)
			}
			return
		}
		pub.logger.Debugf("Connected %s", conn.RemoteAddr().String())
		session := &remoteSubscriberSession{
			pub:     pub,
			conn:    conn,
			msgChan: make(chan []byte, publisherQueueSize),
		}
		pub.mu.Lock()
		if pub.closed {
			pub.mu.Unlock()
			conn.Close()
			return
		}
		pub.sessions[session] = struct{}{}
		pub.wg.Add(1)
		pub.mu.Unlock()
		go session.start()
	}
}

func (pub *defaultPublisher) Publish(msg Message) error {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return errors.Wrapf(err, "serializing %s", msg.GetType().Name())
	}
	payload := buf.Bytes()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.closed {
		return ErrPublisherClosed
	}
	for session := range pub.sessions {
		select {
		case session.msgChan <- payload:
		default:
			// Drop the oldest queued message for slow subscribers.
			select {
			case <-session.msgChan:
			default:
			}
			session.msgChan <- payload
		}
	}
	return nil
}

func (pub *defaultPublisher) GetNumSubscribers() int {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	return len(pub.sessions)
}

// stop closes the listener and every session without talking to the master.
func (pub *defaultPublisher) stop() {
	pub.mu.Lock()
	if pub.closed {
		pub.mu.Unlock()
		return
	}
	pub.closed = true
	close(pub.quitChan)
	pub.listener.Close()
	for session := range pub.sessions {
		session.conn.Close()
	}
	pub.mu.Unlock()
	pub.wg.Wait()
}

func (pub *defaultPublisher) Shutdown() {
	pub.shutdownOnce.Do(func() {
		_, err := callRosAPI(pub.node.masterURI, "unregisterPublisher",
			pub.node.qualifiedName, pub.topic, pub.node.xmlrpcURI)
		if err != nil {
			pub.logger.Warnf("Failed unregisterPublisher(%s): %v", pub.topic, err)
		}
		pub.stop()
		pub.node.removePublisher(pub.topic, pub)
	})
}

type remoteSubscriberSession struct {
	pub     *defaultPublisher
	conn    net.Conn
	msgChan chan []byte
}

func (session *remoteSubscriberSession) start() {
	pub := session.pub
	logger := pub.logger
	defer pub.wg.Done()
	defer func() {
		session.conn.Close()
		pub.mu.Lock()
		delete(pub.sessions, session)
		pub.mu.Unlock()
	}()

	// 1. Read connection header
	session.conn.SetDeadline(time.Now().Add(ServiceCallTimeout))
	headers, err := readConnectionHeader(session.conn)
	if err != nil {
		logger.Errorf("Failed to read connection header: %v", err)
		return
	}
	connHeader := headerMap(headers)
	logger.Debugf("TCPROS Connection Header: %v", connHeader)

	if connHeader["type"] != pub.msgType.Name() && connHeader["type"] != "*" {
		logger.Errorf("Incompatible message type for topic %s: %s vs %s",
			pub.topic, pub.msgType.Name(), connHeader["type"])
		writeConnectionHeader([]header{{"error", "incompatible message type"}}, session.conn)
		return
	}
	if connHeader["md5sum"] != pub.msgType.MD5Sum() && connHeader["md5sum"] != "*" {
		logger.Errorf("Incompatible message md5 for topic %s: %s vs %s",
			pub.topic, pub.msgType.MD5Sum(), connHeader["md5sum"])
		writeConnectionHeader([]header{{"error", "incompatible message md5sum"}}, session.conn)
		return
	}

	// 2. Return response header
	resHeaders := []header{
		{"message_definition", pub.msgType.Text()},
		{"callerid", pub.node.qualifiedName},
		{"latching", "0"},
		{"md5sum", pub.msgType.MD5Sum()},
		{"topic", pub.topic},
		{"type", pub.msgType.Name()},
	}
	if err := writeConnectionHeader(resHeaders, session.conn); err != nil {
		logger.Errorf("Failed to write response header: %v", err)
		return
	}
	session.conn.SetDeadline(time.Time{})

	// 3. Start sending messages
	for {
		select {
		case msg := <-session.msgChan:
			session.conn.SetWriteDeadline(time.Now().Add(publishWriteTimeout))
			if err := writeFrame(session.conn, msg); err != nil {
				logger.Debugf("Subscriber %s went away: %v", connHeader["callerid"], err)
				return
			}
		case <-pub.quitChan:
			return
		}
	}
}
