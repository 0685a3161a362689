// Package nav2_msgs is automatically generated from the message definition "nav2_msgs/GlobalLocalization.srv"
package nav2_msgs

import (
	"bytes"
	"encoding/binary"

	"github.com/edwinhayes/sendlocalization/ros"
	"github.com/pkg/errors"
)

type _MsgGlobalLocalizationRequest struct {
	text   string
	name   string
	md5sum string
}

func (t *_MsgGlobalLocalizationRequest) Text() string {
	return t.text
}

func (t *_MsgGlobalLocalizationRequest) Name() string {
	return t.name
}

func (t *_MsgGlobalLocalizationRequest) MD5Sum() string {
	return t.md5sum
}

func (t *_MsgGlobalLocalizationRequest) NewMessage() ros.Message {
	m := new(GlobalLocalizationRequest)
	m.CenterX = []float64{}
	m.CenterY = []float64{}
	m.Sigma = []float64{}
	m.Weights = []float64{}
	return m
}

var (
	MsgGlobalLocalizationRequest = &_MsgGlobalLocalizationRequest{
		`# Gaussian mixture used to seed the particle filter
float64[] center_x
float64[] center_y
float64[] sigma
float64[] weights
`,
		"nav2_msgs/GlobalLocalizationRequest",
		"5d4f221d1883f4e3061891b8f90d0d7d",
	}
)

type GlobalLocalizationRequest struct {
	CenterX []float64 `rosmsg:"center_x:float64[]"`
	CenterY []float64 `rosmsg:"center_y:float64[]"`
	Sigma   []float64 `rosmsg:"sigma:float64[]"`
	Weights []float64 `rosmsg:"weights:float64[]"`
}

func (m *GlobalLocalizationRequest) GetType() ros.MessageType {
	return MsgGlobalLocalizationRequest
}

func serializeFloat64Array(buf *bytes.Buffer, a []float64) {
	binary.Write(buf, binary.LittleEndian, uint32(len(a)))
	for _, e := range a {
		binary.Write(buf, binary.LittleEndian, e)
	}
}

func deserializeFloat64Array(buf *bytes.Reader) ([]float64, error) {
	var size uint32
	if err := binary.Read(buf, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if int(size)*8 > buf.Len() {
		return nil, errors.New("float64[] length overrun")
	}
	a := make([]float64, int(size))
	for i := 0; i < int(size); i++ {
		if err := binary.Read(buf, binary.LittleEndian, &a[i]); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (m *GlobalLocalizationRequest) Serialize(buf *bytes.Buffer) error {
	var err error
	serializeFloat64Array(buf, m.CenterX)
	serializeFloat64Array(buf, m.CenterY)
	serializeFloat64Array(buf, m.Sigma)
	serializeFloat64Array(buf, m.Weights)
	return err
}

func (m *GlobalLocalizationRequest) Deserialize(buf *bytes.Reader) error {
	var err error = nil
	if m.CenterX, err = deserializeFloat64Array(buf); err != nil {
		return err
	}
	if m.CenterY, err = deserializeFloat64Array(buf); err != nil {
		return err
	}
	if m.Sigma, err = deserializeFloat64Array(buf); err != nil {
		return err
	}
	if m.Weights, err = deserializeFloat64Array(buf); err != nil {
		return err
	}
	return err
}

type _MsgGlobalLocalizationResponse struct {
	text   string
	name   string
	md5sum string
}

func (t *_MsgGlobalLocalizationResponse) Text() string {
	return t.text
}

func (t *_MsgGlobalLocalizationResponse) Name() string {
	return t.name
}

func (t *_MsgGlobalLocalizationResponse) MD5Sum() string {
	return t.md5sum
}

func (t *_MsgGlobalLocalizationResponse) NewMessage() ros.Message {
	m := new(GlobalLocalizationResponse)
	return m
}

var (
	MsgGlobalLocalizationResponse = &_MsgGlobalLocalizationResponse{
		``,
		"nav2_msgs/GlobalLocalizationResponse",
		"d41d8cd98f00b204e9800998ecf8427e",
	}
)

type GlobalLocalizationResponse struct {
}

func (m *GlobalLocalizationResponse) GetType() ros.MessageType {
	return MsgGlobalLocalizationResponse
}

func (m *GlobalLocalizationResponse) Serialize(buf *bytes.Buffer) error {
	var err error
	return err
}

func (m *GlobalLocalizationResponse) Deserialize(buf *bytes.Reader) error {
	var err error = nil
	return err
}

// Service type metadata
type _SrvGlobalLocalization struct {
	name    string
	md5sum  string
	text    string
	reqType ros.MessageType
	resType ros.MessageType
}

func (t *_SrvGlobalLocalization) Name() string                  { return t.name }
func (t *_SrvGlobalLocalization) MD5Sum() string                { return t.md5sum }
func (t *_SrvGlobalLocalization) Text() string                  { return t.text }
func (t *_SrvGlobalLocalization) RequestType() ros.MessageType  { return t.reqType }
func (t *_SrvGlobalLocalization) ResponseType() ros.MessageType { return t.resType }
func (t *_SrvGlobalLocalization) NewService() ros.Service {
	return new(GlobalLocalization)
}

var (
	SrvGlobalLocalization = &_SrvGlobalLocalization{
		"nav2_msgs/GlobalLocalization",
		"5d4f221d1883f4e3061891b8f90d0d7d",
		`float64[] center_x
float64[] center_y
float64[] sigma
float64[] weights
---
`,
		MsgGlobalLocalizationRequest,
		MsgGlobalLocalizationResponse,
	}
)

type GlobalLocalization struct {
	Request  GlobalLocalizationRequest
	Response GlobalLocalizationResponse
}

func (s *GlobalLocalization) ReqMessage() ros.Message { return &s.Request }
func (s *GlobalLocalization) ResMessage() ros.Message { return &s.Response }
