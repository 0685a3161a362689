package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"sync"
)

// Method is a function taking the decoded call arguments and returning
// (interface{}, error). Argument types follow the decoder: int32, float64,
// bool, string, []byte, []interface{} and map[string]interface{}.
type Method interface{}

// Handler serves XML-RPC calls by dispatching on the method name.
type Handler struct {
	mapping map[string]Method
	wait    sync.WaitGroup
}

// NewHandler returns a handler for the given method table.
func NewHandler(mapping map[string]Method) *Handler {
	return &Handler{mapping: mapping}
}

// WaitForShutdown blocks until every in-flight call has been answered.
func (h *Handler) WaitForShutdown() {
	h.wait.Wait()
}

func writeFault(w http.ResponseWriter, message string) {
	var buffer bytes.Buffer
	_ = emitFault(&buffer, 1, message)
	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("Content-Length", strconv.Itoa(buffer.Len()))
	_, _ = buffer.WriteTo(w)
}

// bindArgs converts decoded arguments to reflect values accepted by fn.
func bindArgs(fn reflect.Value, args []interface{}) ([]reflect.Value, error) {
	ft := fn.Type()
	if ft.NumIn() != len(args) {
		return nil, fmt.Errorf("expected %d arguments but got %d", ft.NumIn(), len(args))
	}
	values := make([]reflect.Value, len(args))
	for i, arg := range args {
		want := ft.In(i)
		if arg == nil {
			values[i] = reflect.Zero(want)
			continue
		}
		v := reflect.ValueOf(arg)
		switch {
		case v.Type().AssignableTo(want):
			values[i] = v
		case v.Type().ConvertibleTo(want) && want.Kind() != reflect.String && v.Kind() != reflect.String:
			values[i] = v.Convert(want)
		default:
			return nil, fmt.Errorf("argument %d: %s is not assignable to %s", i, v.Type(), want)
		}
	}
	return values, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.wait.Add(1)
	defer h.wait.Done()

	name, args, err := parseRequest(xml.NewDecoder(req.Body))
	if err != nil {
		writeFault(w, "Invalid request.")
		return
	}

	method, ok := h.mapping[name]
	if !ok {
		writeFault(w, fmt.Sprintf("No method named '%v'.", name))
		return
	}

	fn := reflect.ValueOf(method)
	argValues, err := bindArgs(fn, args)
	if err != nil {
		writeFault(w, fmt.Sprintf("Method '%v': %v.", name, err))
		return
	}
	results := fn.Call(argValues)
	if len(results) != 2 {
		writeFault(w, fmt.Sprintf("Method '%v' returned invalid results.", name))
		return
	}
	if !results[1].IsNil() {
		err, _ := results[1].Interface().(error)
		writeFault(w, fmt.Sprintf("Method '%v' call failed: %v.", name, err))
		return
	}

	var buffer bytes.Buffer
	if err := emitResponse(&buffer, results[0].Interface()); err != nil {
		writeFault(w, fmt.Sprintf("Method '%v' returned an invalid result type.", name))
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("Content-Length", strconv.Itoa(buffer.Len()))
	_, _ = buffer.WriteTo(w)
}
