// Package xmlrpc implements the subset of XML-RPC used by the ROS master
// and slave APIs.
package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformed is returned when a request or response body cannot be parsed.
var ErrMalformed = errors.New("malformed xmlrpc document")

func xmlEscape(s string) string {
	var buffer bytes.Buffer
	xml.EscapeText(&buffer, []byte(s))
	return buffer.String()
}

func emitTagged(buf *bytes.Buffer, tag string, text string) {
	buf.WriteString("<" + tag + ">")
	buf.WriteString(text)
	buf.WriteString("</" + tag + ">")
}

// emitValue writes the body of a <value> element. A nil value emits nothing.
func emitValue(buf *bytes.Buffer, value interface{}) error {
	if bs, ok := value.([]byte); ok {
		emitTagged(buf, "base64", base64.StdEncoding.EncodeToString(bs))
		return nil
	}
	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return nil
	}
	switch val.Kind() {
	case reflect.Bool:
		if val.Bool() {
			emitTagged(buf, "boolean", "1")
		} else {
			emitTagged(buf, "boolean", "0")
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := val.Int()
		if i < math.MinInt32 || i > math.MaxInt32 {
			return errors.Errorf("int %d exceeds XML-RPC i4 range", i)
		}
		emitTagged(buf, "int", strconv.FormatInt(i, 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := val.Uint()
		if u > math.MaxInt32 {
			return errors.Errorf("int %d exceeds XML-RPC i4 range", u)
		}
		emitTagged(buf, "int", strconv.FormatUint(u, 10))
	case reflect.Float32, reflect.Float64:
		emitTagged(buf, "double", strconv.FormatFloat(val.Float(), 'g', -1, 64))
	case reflect.String:
		emitTagged(buf, "string", xmlEscape(val.String()))
	case reflect.Array, reflect.Slice:
		buf.WriteString("<array><data>")
		for i := 0; i < val.Len(); i++ {
			buf.WriteString("<value>")
			if err := emitValue(buf, val.Index(i).Interface()); err != nil {
				return err
			}
			buf.WriteString("</value>")
		}
		buf.WriteString("</data></array>")
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return errors.New("map key must be string")
		}
		buf.WriteString("<struct>")
		for _, key := range val.MapKeys() {
			buf.WriteString("<member><name>")
			buf.WriteString(xmlEscape(key.String()))
			buf.WriteString("</name><value>")
			if err := emitValue(buf, val.MapIndex(key).Interface()); err != nil {
				return err
			}
			buf.WriteString("</value></member>")
		}
		buf.WriteString("</struct>")
	case reflect.Interface, reflect.Ptr:
		if val.IsNil() {
			return nil
		}
		return emitValue(buf, val.Elem().Interface())
	default:
		return errors.Errorf("unsupported kind %v", val.Kind())
	}
	return nil
}

func emitRequest(buf *bytes.Buffer, method string, args ...interface{}) error {
	buf.WriteString(xml.Header)
	buf.WriteString("<methodCall><methodName>")
	buf.WriteString(xmlEscape(method))
	buf.WriteString("</methodName><params>")
	for _, arg := range args {
		buf.WriteString("<param><value>")
		if err := emitValue(buf, arg); err != nil {
			return err
		}
		buf.WriteString("</value></param>")
	}
	buf.WriteString("</params></methodCall>")
	return nil
}

func emitResponse(buf *bytes.Buffer, value interface{}) error {
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><params><param><value>")
	if err := emitValue(buf, value); err != nil {
		return err
	}
	buf.WriteString("</value></param></params></methodResponse>")
	return nil
}

func emitFault(buf *bytes.Buffer, code int, message string) error {
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><fault><value>")
	fault := map[string]interface{}{
		"faultCode":   code,
		"faultString": message,
	}
	if err := emitValue(buf, fault); err != nil {
		return err
	}
	buf.WriteString("</value></fault></methodResponse>")
	return nil
}

func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		token, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if elem, ok := token.(xml.StartElement); ok {
			return elem, nil
		}
	}
}

func expectStart(d *xml.Decoder, name string) error {
	elem, err := nextStart(d)
	if err != nil {
		return err
	}
	if elem.Name.Local != name {
		return errors.Wrapf(ErrMalformed, "expected <%s> but got <%s>", name, elem.Name.Local)
	}
	return nil
}

// readText collects character data up to the end of the current element.
func readText(d *xml.Decoder) (string, error) {
	var sb strings.Builder
	for {
		token, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", errors.Wrapf(ErrMalformed, "unexpected <%s> in scalar", t.Name.Local)
		}
	}
}

// skipTo consumes tokens until the closing tag of name.
func skipTo(d *xml.Decoder, name string) error {
	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		if end, ok := token.(xml.EndElement); ok && end.Name.Local == name {
			return nil
		}
	}
}

// parseValue parses the content of a <value> element whose start tag has
// already been consumed. On return the </value> tag has been consumed too.
func parseValue(d *xml.Decoder) (interface{}, error) {
	var text strings.Builder
	for {
		token, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			// <value>text</value> without a type tag is a string.
			return text.String(), nil
		case xml.StartElement:
			v, err := parseTyped(d, t.Name.Local)
			if err != nil {
				return nil, err
			}
			if err := skipTo(d, "value"); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
}

func parseTyped(d *xml.Decoder, tag string) (interface{}, error) {
	switch tag {
	case "boolean":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		switch strings.TrimSpace(s) {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, errors.Wrapf(ErrMalformed, "boolean %q", s)
	case "i4", "int":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		return int32(i), nil
	case "double":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		return f, nil
	case "string":
		return readText(d)
	case "base64":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		bs, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		return bs, nil
	case "array":
		return parseArray(d)
	case "struct":
		return parseStruct(d)
	}
	return nil, errors.Wrapf(ErrMalformed, "unsupported type <%s>", tag)
}

func parseArray(d *xml.Decoder) (interface{}, error) {
	if err := expectStart(d, "data"); err != nil {
		return nil, err
	}
	a := []interface{}{}
	for {
		token, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "value" {
				return nil, errors.Wrapf(ErrMalformed, "unexpected <%s> in array", t.Name.Local)
			}
			v, err := parseValue(d)
			if err != nil {
				return nil, err
			}
			a = append(a, v)
		case xml.EndElement:
			if t.Name.Local == "array" {
				return a, nil
			}
		}
	}
}

func parseStruct(d *xml.Decoder) (interface{}, error) {
	m := make(map[string]interface{})
	var name string
	var value interface{}
	for {
		token, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "name":
				if name, err = readText(d); err != nil {
					return nil, err
				}
			case "value":
				if value, err = parseValue(d); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "member":
				m[name] = value
				name, value = "", nil
			case "struct":
				return m, nil
			}
		}
	}
}

func parseRequest(d *xml.Decoder) (string, []interface{}, error) {
	if err := expectStart(d, "methodCall"); err != nil {
		return "", nil, err
	}
	if err := expectStart(d, "methodName"); err != nil {
		return "", nil, err
	}
	name, err := readText(d)
	if err != nil {
		return "", nil, err
	}
	name = strings.TrimSpace(name)
	args := []interface{}{}
	for {
		token, err := d.Token()
		if err != nil {
			return "", nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "value" {
				v, err := parseValue(d)
				if err != nil {
					return "", nil, err
				}
				args = append(args, v)
			}
		case xml.EndElement:
			if t.Name.Local == "methodCall" {
				return name, args, nil
			}
		}
	}
}

// parseResponse returns ok == false with the fault struct when the remote
// side answered with a fault.
func parseResponse(d *xml.Decoder) (bool, interface{}, error) {
	if err := expectStart(d, "methodResponse"); err != nil {
		return false, nil, err
	}
	elem, err := nextStart(d)
	if err != nil {
		return false, nil, err
	}
	switch elem.Name.Local {
	case "params":
		if err := expectStart(d, "param"); err != nil {
			return false, nil, err
		}
		if err := expectStart(d, "value"); err != nil {
			return false, nil, err
		}
		v, err := parseValue(d)
		return true, v, err
	case "fault":
		if err := expectStart(d, "value"); err != nil {
			return false, nil, err
		}
		v, err := parseValue(d)
		return false, v, err
	}
	return false, nil, errors.Wrapf(ErrMalformed, "unexpected <%s> in response", elem.Name.Local)
}

// Fault is an XML-RPC fault returned by the remote side.
type Fault struct {
	Code    int32
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("xmlrpc fault %d: %s", f.Code, f.Message)
}

func faultFromValue(v interface{}) error {
	m, ok := v.(map[string]interface{})
	if !ok {
		return errors.Wrap(ErrMalformed, "fault is not a struct")
	}
	code, ok := m["faultCode"].(int32)
	if !ok {
		return errors.Wrap(ErrMalformed, "faultCode is not an int")
	}
	msg, ok := m["faultString"].(string)
	if !ok {
		return errors.Wrap(ErrMalformed, "faultString is not a string")
	}
	return &Fault{Code: code, Message: msg}
}
