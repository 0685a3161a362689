package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single Call made through the default client.
const DefaultTimeout = 5 * time.Second

// ROS nodes talk to many short lived peers; connections are not pooled so
// that nothing outlives a node.
var defaultClient = &http.Client{
	Timeout:   DefaultTimeout,
	Transport: &http.Transport{DisableKeepAlives: true},
}

// Call performs an XML-RPC method call against url. A fault response is
// returned as a *Fault error.
func Call(url string, method string, args ...interface{}) (interface{}, error) {
	return CallWithClient(defaultClient, url, method, args...)
}

// CallWithClient is Call with a caller supplied http.Client.
func CallWithClient(client *http.Client, url string, method string, args ...interface{}) (interface{}, error) {
	var buffer bytes.Buffer
	if err := emitRequest(&buffer, method, args...); err != nil {
		return nil, errors.Wrapf(err, "building %s request", method)
	}
	r, err := client.Post(url, "text/xml", &buffer)
	if err != nil {
		return nil, errors.Wrapf(err, "sending %s request", method)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s: http status %s", method, r.Status)
	}

	ok, result, err := parseResponse(xml.NewDecoder(r.Body))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s response", method)
	}
	if !ok {
		return nil, faultFromValue(result)
	}
	return result, nil
}
