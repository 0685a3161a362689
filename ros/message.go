package ros

import (
	"bytes"
)

type MessageType interface {
	Text() string
	MD5Sum() string
	Name() string
	NewMessage() Message
}

type Message interface {
	GetType() MessageType
	Serialize(buf *bytes.Buffer) error
	Deserialize(buf *bytes.Reader) error
}

// ServiceType describes a service: its md5sum, its name and the request and
// response message types. NewService instantiates an empty Service.
type ServiceType interface {
	MD5Sum() string
	Name() string
	RequestType() MessageType
	ResponseType() MessageType
	NewService() Service
}

// Service holds one request/response pair.
type Service interface {
	ReqMessage() Message
	ResMessage() Message
}
