package ros

import (
	"math"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
)

// loadParamFromString decodes a command line parameter value. JSON scalars,
// arrays and objects are decoded; anything else is kept as a plain string.
func loadParamFromString(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	value, dataType, end, err := jsonparser.Get([]byte(trimmed))
	if err != nil || end != len(trimmed) {
		return s
	}
	v, err := decodeJSONValue(value, dataType)
	if err != nil {
		return s
	}
	return v
}

// decodeJSONValue converts a jsonparser value into the types carried by
// XML-RPC: int32, float64, bool, string, []interface{} and
// map[string]interface{}.
func decodeJSONValue(value []byte, dataType jsonparser.ValueType) (interface{}, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Number:
		if i, err := jsonparser.ParseInt(value); err == nil && i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i), nil
		}
		return jsonparser.ParseFloat(value)
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Array:
		result := []interface{}{}
		var firstErr error
		_, err := jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, _ int, err error) {
			if firstErr != nil {
				return
			}
			if err != nil {
				firstErr = err
				return
			}
			v, err := decodeJSONValue(item, itemType)
			if err != nil {
				firstErr = err
				return
			}
			result = append(result, v)
		})
		if err != nil {
			return nil, err
		}
		return result, firstErr
	case jsonparser.Object:
		result := map[string]interface{}{}
		err := jsonparser.ObjectEach(value, func(key []byte, item []byte, itemType jsonparser.ValueType, _ int) error {
			v, err := decodeJSONValue(item, itemType)
			if err != nil {
				return err
			}
			result[string(key)] = v
			return nil
		})
		return result, err
	}
	return nil, errors.Errorf("unsupported JSON value %q", value)
}

// ParamFloat64 converts a parameter value to float64.
func ParamFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	}
	return 0, errors.Errorf("parameter value %v (%T) is not a number", v, v)
}

// ParamBool converts a parameter value to bool.
func ParamBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, errors.Errorf("parameter value %v (%T) is not a bool", v, v)
}

// ParamString converts a parameter value to string.
func ParamString(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", errors.Errorf("parameter value %v (%T) is not a string", v, v)
}
