package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// ParseStructured flattens a YAML or JSON document into labelled values.
// Nested keys are joined with dots, so {identity: {full_name: x}} yields the
// label "identity.full_name". Lists of scalars are joined with ", " and lists
// of objects are kept as a compact JSON array.
func ParseStructured(content string) ([]LabeledValue, error) {
	var root interface{}
	if err := yaml.UnmarshalWithOptions([]byte(content), &root, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("failed to parse structured document: %w", err)
	}

	var pairs []LabeledValue
	flatten("", root, &pairs)
	return pairs, nil
}

func flatten(prefix string, v interface{}, out *[]LabeledValue) {
	switch node := v.(type) {
	case yaml.MapSlice:
		for _, item := range node {
			key := fmt.Sprint(item.Key)
			if prefix != "" {
				key = prefix + "." + key
			}
			flatten(key, item.Value, out)
		}
	case []interface{}:
		if prefix == "" {
			for _, item := range node {
				flatten("", item, out)
			}
			return
		}
		if value, ok := listValue(node); ok {
			*out = append(*out, LabeledValue{Label: prefix, Value: value})
		}
	default:
		if prefix == "" {
			return
		}
		if value := scalar(node); value != "" {
			*out = append(*out, LabeledValue{Label: prefix, Value: value})
		}
	}
}

func listValue(items []interface{}) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	if _, isMap := items[0].(yaml.MapSlice); isMap {
		data, err := json.Marshal(plain(items))
		if err != nil {
			return "", false
		}
		return string(data), true
	}
	var parts []string
	for _, item := range items {
		if s := scalar(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", "), len(parts) > 0
}

func scalar(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case bool:
		if s {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		if s.Hour() == 0 && s.Minute() == 0 && s.Second() == 0 {
			return s.Format("2006-01-02")
		}
		return s.Format(time.RFC3339)
	case yaml.MapSlice, []interface{}:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// plain converts ordered maps into values encoding/json understands
func plain(v interface{}) interface{} {
	switch node := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]interface{}, len(node))
		for _, item := range node {
			m[fmt.Sprint(item.Key)] = plain(item.Value)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(node))
		for i, item := range node {
			out[i] = plain(item)
		}
		return out
	default:
		return node
	}
}
