package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/dossier/internal/model"
)

// ErrInvalidValue is returned when a value does not match the declared type
var ErrInvalidValue = errors.New("invalid value")

const (
	maxShortText = 256
	maxLongText  = 8000
	dateLayout   = "2006-01-02"
)

// Value checks a raw answer against a fact definition's data type and
// returns the normalized value to store. It never judges whether the value
// is plausible, only whether it has the declared shape.
func Value(def model.FactDefinition, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", invalid(def, "empty value")
	}

	switch def.Type {
	case model.TypeShortText:
		if strings.ContainsAny(value, "\r\n") {
			return "", invalid(def, "short text must be a single line")
		}
		if len([]rune(value)) > maxShortText {
			return "", invalid(def, "longer than %d characters", maxShortText)
		}
		return value, nil

	case model.TypeLongText:
		if len([]rune(value)) > maxLongText {
			return "", invalid(def, "longer than %d characters", maxLongText)
		}
		return value, nil

	case model.TypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
			return "", invalid(def, "%q is not a number", value)
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil

	case model.TypeDate:
		d, err := time.Parse(dateLayout, value)
		if err != nil {
			return "", invalid(def, "%q is not a date (YYYY-MM-DD)", value)
		}
		return d.Format(dateLayout), nil

	case model.TypeSingleChoice:
		for _, c := range def.Choices {
			if strings.EqualFold(c, value) {
				return c, nil
			}
		}
		return "", invalid(def, "%q is not one of %s", value, strings.Join(def.Choices, ", "))

	case model.TypeMultiEntryRecord:
		return records(def, value)

	default:
		return "", invalid(def, "unsupported type %q", def.Type)
	}
}

// records accepts a JSON array of non-empty objects and returns it compacted
func records(def model.FactDefinition, value string) (string, error) {
	if !strings.HasPrefix(value, "[") {
		return "", invalid(def, "expected a JSON array of records")
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		return "", invalid(def, "expected a JSON array of records: %v", err)
	}
	for i, e := range entries {
		if len(e) == 0 {
			return "", invalid(def, "record %d is empty", i+1)
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(value)); err != nil {
		return "", invalid(def, "%v", err)
	}
	return buf.String(), nil
}

func invalid(def model.FactDefinition, format string, args ...interface{}) error {
	return fmt.Errorf("%w for %s (%s): %s", ErrInvalidValue, def.ID, def.Type, fmt.Sprintf(format, args...))
}
