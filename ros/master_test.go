package ros

import (
	"net/http/httptest"
	"testing"

	"github.com/edwinhayes/sendlocalization/xmlrpc"
	"github.com/pkg/errors"
)

func TestCallRosAPI(t *testing.T) {
	handler := xmlrpc.NewHandler(map[string]xmlrpc.Method{
		"lookupService": func(callerID string, service string) (interface{}, error) {
			if service == "/reinitialize_global_localization" {
				return buildRosAPIResult(APIStatusSuccess, "", "rosrpc://127.0.0.1:4242"), nil
			}
			return buildRosAPIResult(APIStatusError, "no provider", ""), nil
		},
		"getPid": func(callerID string) (interface{}, error) {
			return []interface{}{int32(1)}, nil
		},
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	value, err := callRosAPI(server.URL, "lookupService", "/test", "/reinitialize_global_localization")
	if err != nil {
		t.Fatal(err)
	}
	if value != "rosrpc://127.0.0.1:4242" {
		t.Error(value)
	}

	_, err = callRosAPI(server.URL, "lookupService", "/test", "/missing")
	apiErr, ok := errors.Cause(err).(*APIError)
	if !ok {
		t.Fatalf("expected *APIError but got %v", err)
	}
	if apiErr.Code != APIStatusError || apiErr.Message != "no provider" {
		t.Error(apiErr)
	}

	if _, err := callRosAPI(server.URL, "getPid", "/test"); err == nil {
		t.Error("malformed triplet accepted")
	}
}
