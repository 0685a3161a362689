package main

import (
	"github.com/edwinhayes/sendlocalization/msgs/geometry_msgs"
	"github.com/edwinhayes/sendlocalization/msgs/msgspec"
	"github.com/edwinhayes/sendlocalization/msgs/nav2_msgs"
	"github.com/edwinhayes/sendlocalization/msgs/std_msgs"
	"github.com/edwinhayes/sendlocalization/msgs/std_srvs"
	"github.com/edwinhayes/sendlocalization/ros"
	"github.com/pkg/errors"
)

type wireType struct {
	kind   string
	name   string
	md5sum string
}

type serviceDefinition interface {
	ros.ServiceType
	Text() string
}

// Nested messages come before the messages using them.
var (
	wireMessages = []ros.MessageType{
		std_msgs.MsgHeader,
		std_msgs.MsgEmpty,
		geometry_msgs.MsgPoint,
		geometry_msgs.MsgQuaternion,
		geometry_msgs.MsgPose,
		geometry_msgs.MsgPoseWithCovariance,
		geometry_msgs.MsgPoseWithCovarianceStamped,
	}
	wireServices = []serviceDefinition{
		std_srvs.SrvEmpty,
		nav2_msgs.SrvGlobalLocalization,
		nav2_msgs.SrvClearEntireCostmap,
	}
)

// wireTypes recomputes the md5sum of every type from its definition and
// fails if it differs from the one sent in connection headers.
func wireTypes() ([]wireType, error) {
	r := msgspec.NewRegistry()
	var types []wireType
	for _, m := range wireMessages {
		spec, err := r.LoadMsg(m.Name(), m.Text())
		if err != nil {
			return nil, err
		}
		if spec.MD5Sum != m.MD5Sum() {
			return nil, errors.Errorf("%s: md5sum %s does not match definition (%s)", m.Name(), m.MD5Sum(), spec.MD5Sum)
		}
		types = append(types, wireType{"msg", m.Name(), spec.MD5Sum})
	}
	for _, s := range wireServices {
		spec, err := r.LoadSrv(s.Name(), s.Text())
		if err != nil {
			return nil, err
		}
		if spec.MD5Sum != s.MD5Sum() {
			return nil, errors.Errorf("%s: md5sum %s does not match definition (%s)", s.Name(), s.MD5Sum(), spec.MD5Sum)
		}
		types = append(types, wireType{"srv", s.Name(), spec.MD5Sum})
	}
	return types, nil
}
