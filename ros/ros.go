// Package ros is a ROS client library speaking the master XML-RPC API and
// TCPROS, with just enough surface for nodes that call services and
// exchange pose topics.
package ros

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Node is a participant in the ROS graph.
// A Node must be driven by Spin or SpinOnce from a single goroutine; service
// handlers and subscriber callbacks run on that goroutine.
type Node interface {
	NewPublisher(topic string, msgType MessageType) (Publisher, error)
	// callback takes (msg) or (msg, MessageEvent) where msg is the
	// generated message pointer type.
	NewSubscriber(topic string, msgType MessageType, callback interface{}) (Subscriber, error)
	NewServiceClient(service string, srvType ServiceType) ServiceClient
	// handler must be a func(*T) error where *T implements Service.
	NewServiceServer(service string, srvType ServiceType, handler interface{}) (ServiceServer, error)

	OK() bool
	SpinOnce()
	Spin()
	Shutdown()

	GetParam(name string) (interface{}, error)
	SetParam(name string, value interface{}) error
	HasParam(name string) (bool, error)
	SearchParam(name string) (string, error)
	DeleteParam(name string) error

	Name() string
	Logger() *logrus.Entry
	NonRosArgs() []string
}

// NewNode creates a node registered against the master found in
// ROS_MASTER_URI or the __master special argument.
func NewNode(name string, args []string) (Node, error) {
	return newDefaultNode(name, args)
}

type Publisher interface {
	Publish(msg Message) error
	GetNumSubscribers() int
	Shutdown()
}

type Subscriber interface {
	GetNumPublishers() int
	Shutdown()
}

// MessageEvent is the optional second argument of a subscriber callback.
type MessageEvent struct {
	PublisherName    string
	ReceiptTime      time.Time
	ConnectionHeader map[string]string
}

type ServiceServer interface {
	Shutdown()
}

type ServiceClient interface {
	Call(srv Service) error
	// WaitForService blocks until the master knows the service or the
	// timeout expires.
	WaitForService(timeout time.Duration) error
	Shutdown()
}
