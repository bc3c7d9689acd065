package canonicaljson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Parse decodes data into a canonical Value tree. Numbers must be
// integer-literal (no fraction, no exponent) and within [MinInteger,
// MaxInteger]; any violation is a *NotIntegerError or *OutOfRangeError.
// Trailing bytes after the top-level value are rejected.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}

	// Reject trailing garbage.
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Value{}, &SyntaxError{Cause: fmt.Errorf("trailing data after top-level value")}
		}
		return Value{}, &SyntaxError{Cause: err}
	}

	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, &SyntaxError{Cause: err}
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return parseNumber(t)
	case json.Delim:
		switch t {
		case '[':
			return parseArray(dec)
		case '{':
			return parseObject(dec)
		default:
			return Value{}, &SyntaxError{Cause: fmt.Errorf("unexpected delimiter %q", t)}
		}
	default:
		return Value{}, &SyntaxError{Cause: fmt.Errorf("unexpected token %v (%T)", tok, tok)}
	}
}

func parseNumber(n json.Number) (Value, error) {
	lit := string(n)
	if strings.ContainsAny(lit, ".eE") {
		return Value{}, &NotIntegerError{Literal: lit}
	}
	i, err := n.Int64()
	if err != nil {
		return Value{}, &NotIntegerError{Literal: lit}
	}
	return NewInteger(i)
}

func parseArray(dec *json.Decoder) (Value, error) {
	var vs []Value
	for dec.More() {
		v, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		vs = append(vs, v)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return Value{}, &SyntaxError{Cause: err}
	}
	return Array(vs), nil
}

func parseObject(dec *json.Decoder) (Value, error) {
	obj := NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, &SyntaxError{Cause: err}
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, &SyntaxError{Cause: fmt.Errorf("object key is not a string: %v", keyTok)}
		}
		v, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		obj.Set(key, v)
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return Value{}, &SyntaxError{Cause: err}
	}
	return ObjectValue(obj), nil
}
