// Package nav2_msgs is automatically generated from the message definition "nav2_msgs/ClearEntireCostmap.srv"
package nav2_msgs

import (
	"bytes"

	"github.com/edwinhayes/sendlocalization/msgs/std_msgs"
	"github.com/edwinhayes/sendlocalization/ros"
)

type _MsgClearEntireCostmapRequest struct {
	text   string
	name   string
	md5sum string
}

func (t *_MsgClearEntireCostmapRequest) Text() string {
	return t.text
}

func (t *_MsgClearEntireCostmapRequest) Name() string {
	return t.name
}

func (t *_MsgClearEntireCostmapRequest) MD5Sum() string {
	return t.md5sum
}

func (t *_MsgClearEntireCostmapRequest) NewMessage() ros.Message {
	m := new(ClearEntireCostmapRequest)
	m.Request = std_msgs.Empty{}
	return m
}

var (
	MsgClearEntireCostmapRequest = &_MsgClearEntireCostmapRequest{
		`std_msgs/Empty request
`,
		"nav2_msgs/ClearEntireCostmapRequest",
		"57c42d82c9bab8a1ec9de111b7540471",
	}
)

type ClearEntireCostmapRequest struct {
	Request std_msgs.Empty `rosmsg:"request:Empty"`
}

func (m *ClearEntireCostmapRequest) GetType() ros.MessageType {
	return MsgClearEntireCostmapRequest
}

func (m *ClearEntireCostmapRequest) Serialize(buf *bytes.Buffer) error {
	var err error
	if err = m.Request.Serialize(buf); err != nil {
		return err
	}
	return err
}

func (m *ClearEntireCostmapRequest) Deserialize(buf *bytes.Reader) error {
	var err error = nil
	if err = m.Request.Deserialize(buf); err != nil {
		return err
	}
	return err
}

type _MsgClearEntireCostmapResponse struct {
	text   string
	name   string
	md5sum string
}

func (t *_MsgClearEntireCostmapResponse) Text() string {
	return t.text
}

func (t *_MsgClearEntireCostmapResponse) Name() string {
	return t.name
}

func (t *_MsgClearEntireCostmapResponse) MD5Sum() string {
	return t.md5sum
}

func (t *_MsgClearEntireCostmapResponse) NewMessage() ros.Message {
	m := new(ClearEntireCostmapResponse)
	m.Response = std_msgs.Empty{}
	return m
}

var (
	MsgClearEntireCostmapResponse = &_MsgClearEntireCostmapResponse{
		`std_msgs/Empty response
`,
		"nav2_msgs/ClearEntireCostmapResponse",
		"f624545799d912fd57177cf7069e330d",
	}
)

type ClearEntireCostmapResponse struct {
	Response std_msgs.Empty `rosmsg:"response:Empty"`
}

func (m *ClearEntireCostmapResponse) GetType() ros.MessageType {
	return MsgClearEntireCostmapResponse
}

func (m *ClearEntireCostmapResponse) Serialize(buf *bytes.Buffer) error {
	var err error
	if err = m.Response.Serialize(buf); err != nil {
		return err
	}
	return err
}

func (m *ClearEntireCostmapResponse) Deserialize(buf *bytes.Reader) error {
	var err error = nil
	if err = m.Response.Deserialize(buf); err != nil {
		return err
	}
	return err
}
// Service type metadata
type _SrvClearEntireCostmap struct {
	name    string
	md5sum  string
	text    string
	reqType ros.MessageType
	resType ros.MessageType
}

func (t *_SrvClearEntireCostmap) Name() string                  { return t.name }
func (t *_SrvClearEntireCostmap) MD5Sum() string                { return t.md5sum }
func (t *_SrvClearEntireCostmap) Text() string                  { return t.text }
func (t *_SrvClearEntireCostmap) RequestType() ros.MessageType  { return t.reqType }
func (t *_SrvClearEntireCostmap) ResponseType() ros.MessageType { return t.resType }
func (t *_SrvClearEntireCostmap) NewService() ros.Service {
	return new(ClearEntireCostmap)
}

var (
	SrvClearEntireCostmap = &_SrvClearEntireCostmap{
		"nav2_msgs/ClearEntireCostmap",
		"a6cf641232e3a33f934241cc2895ab85",
		`std_msgs/Empty request
---
std_msgs/Empty response
`,
		MsgClearEntireCostmapRequest,
		MsgClearEntireCostmapResponse,
	}
)

type ClearEntireCostmap struct {
	Request  ClearEntireCostmapRequest
	Response ClearEntireCostmapResponse
}

func (s *ClearEntireCostmap) ReqMessage() ros.Message { return &s.Request }
func (s *ClearEntireCostmap) ResMessage() ros.Message { return &s.Response }
