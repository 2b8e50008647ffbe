package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString accepts a JSON string, number or boolean. Models often answer
// "servings": 24 where a string was asked for.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	case '{', '[':
		return fmt.Errorf("cannot decode %s into a string", data[:1])
	default:
		// numbers and booleans keep their literal form
		*s = FlexString(data)
	}
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// StringList accepts an array of strings, numbers or objects with a name,
// text or value field, or a single string.
type StringList []string

var listObjectKeys = []string{"name", "text", "value", "title"}

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*l = StringList{v}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	out := make(StringList, 0, len(items))
	for _, item := range items {
		if v := listItem(item); v != "" {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

func listItem(item json.RawMessage) string {
	item = bytes.TrimSpace(item)
	if len(item) == 0 {
		return ""
	}

	if item[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			return ""
		}
		for _, key := range listObjectKeys {
			if raw, ok := obj[key]; ok {
				if v := listItem(raw); v != "" {
					return v
				}
			}
		}
		return ""
	}

	var v FlexString
	if err := json.Unmarshal(item, &v); err != nil {
		return ""
	}
	return strings.TrimSpace(string(v))
}
