package query

import (
	"encoding/json"

	"github.com/valyala/fastjson"
)

// MapRecord is a Record backed by nested maps, such as the result of
// decoding a JSON object with encoding/json.
type MapRecord map[string]interface{}

// Lookup implements Record.
func (m MapRecord) Lookup(path []string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(m)
	for _, key := range path {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			if rec, isRec := cur.(MapRecord); isRec {
				obj, ok = rec, true
			}
		}
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	v, ok := normalize(cur)
	if !ok {
		return cur, true
	}
	return v, true
}

// JSONRecord is a Record backed by a parsed JSON value.
type JSONRecord struct {
	v *fastjson.Value
}

// NewJSONRecord wraps a parsed value. The value must remain valid while the
// record is in use; see fastjson.Parser.
func NewJSONRecord(v *fastjson.Value) JSONRecord { return JSONRecord{v: v} }

// ParseJSON parses data into a record.
func ParseJSON(data []byte) (JSONRecord, error) {
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return JSONRecord{}, err
	}
	return JSONRecord{v: v}, nil
}

// Lookup implements Record. Objects and arrays are returned as
// *fastjson.Value and compare unequal to everything.
func (r JSONRecord) Lookup(path []string) (interface{}, bool) {
	if r.v == nil {
		return nil, false
	}
	v := r.v.Get(path...)
	if v == nil {
		return nil, false
	}
	switch v.Type() {
	case fastjson.TypeNull:
		return nil, true
	case fastjson.TypeString:
		return string(v.GetStringBytes()), true
	case fastjson.TypeNumber:
		return v.GetFloat64(), true
	case fastjson.TypeTrue:
		return true, true
	case fastjson.TypeFalse:
		return false, true
	}
	return v, true
}

// normalize converts v to one of the value types queries compare: nil,
// bool, float64 or string.
func normalize(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case nil, bool, float64, string:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}
