package ros

import (
	"fmt"

	"github.com/edwinhayes/sendlocalization/xmlrpc"
	"github.com/pkg/errors"
)

const (
	//APIStatusError is an API call which returned an Error
	APIStatusError = -1
	//APIStatusFailure is a failed API call
	APIStatusFailure = 0
	//APIStatusSuccess is a successful API call
	APIStatusSuccess = 1
)

// APIError is a well formed master or slave API reply whose status code is
// not APIStatusSuccess.
type APIError struct {
	Method  string
	Code    int32
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ROS API %s failed with code %d: %s", e.Method, e.Code, e.Message)
}

// callRosAPI performs an XML-RPC call and unpacks the [code, message, value]
// triplet every ROS API method answers with.
func callRosAPI(calleeURI string, method string, args ...interface{}) (interface{}, error) {
	result, err := xmlrpc.Call(calleeURI, method, args...)
	if err != nil {
		return nil, err
	}

	xs, ok := result.([]interface{})
	if !ok {
		return nil, errors.Errorf("malformed ROS API result for %s", method)
	}
	if len(xs) != 3 {
		return nil, errors.Errorf("malformed ROS API result for %s: length must be 3 but %d", method, len(xs))
	}
	code, ok := xs[0].(int32)
	if !ok {
		return nil, errors.Errorf("status code of %s is not int", method)
	}
	message, ok := xs[1].(string)
	if !ok {
		return nil, errors.Errorf("status message of %s is not string", method)
	}
	if code != APIStatusSuccess {
		return nil, &APIError{Method: method, Code: code, Message: message}
	}
	return xs[2], nil
}

// buildRosAPIResult builds an XMLRPC ready array from a ROS API result triplet.
func buildRosAPIResult(code int32, message string, value interface{}) interface{} {
	return []interface{}{code, message, value}
}
