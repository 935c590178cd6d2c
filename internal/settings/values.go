package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseBool decodes a JSON bool, a truthy string, or 0/1.
func ParseBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, false
	}
	var parsedBool bool
	if errUnmarshalBool := json.Unmarshal(raw, &parsedBool); errUnmarshalBool == nil {
		return parsedBool, true
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		switch strings.ToLower(strings.TrimSpace(parsedString)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		default:
			return false, false
		}
	}
	if parsed, ok := ParseInt(raw); ok && (parsed == 0 || parsed == 1) {
		return parsed == 1, true
	}
	return false, false
}

// ParseString decodes a JSON string and trims it.
func ParseString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var parsedString string
	if errUnmarshal := json.Unmarshal(raw, &parsedString); errUnmarshal == nil {
		return strings.TrimSpace(parsedString), true
	}
	return "", false
}

// ParseInt decodes an integral JSON number or numeric string.
func ParseInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var parsedInt int
	if errUnmarshalInt := json.Unmarshal(raw, &parsedInt); errUnmarshalInt == nil {
		return parsedInt, true
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil {
			return 0, false
		}
		return parsed, true
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) || parsedFloat != math.Trunc(parsedFloat) {
			return 0, false
		}
		if parsedFloat > math.MaxInt32 || parsedFloat < math.MinInt32 {
			return 0, false
		}
		return int(parsedFloat), true
	}
	return 0, false
}

// ParseNonNegativeInt is ParseInt restricted to values >= 0.
func ParseNonNegativeInt(raw json.RawMessage) (int, bool) {
	parsed, ok := ParseInt(raw)
	return parsed, ok && parsed >= 0
}

// ParsePositiveInt is ParseInt restricted to values > 0.
func ParsePositiveInt(raw json.RawMessage) (int, bool) {
	parsed, ok := ParseInt(raw)
	return parsed, ok && parsed > 0
}
