package formsubmit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// ErrNullResponse is returned when the server answers with a JSON null body.
var ErrNullResponse = errors.New("response body is null")

// OutcomeKind selects how a settled response is rendered.
type OutcomeKind int

const (
	// OutcomeMessage renders text into the response message region.
	OutcomeMessage OutcomeKind = iota
	// OutcomeRedirect navigates the page away.
	OutcomeRedirect
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRedirect:
		return "redirect"
	default:
		return "message"
	}
}

// Outcome is the server response reduced to the single branch that drives the page.
type Outcome struct {
	Kind     OutcomeKind
	Location string
	Text     string
}

// Redirect builds a navigation outcome.
func Redirect(location string) Outcome {
	return Outcome{Kind: OutcomeRedirect, Location: location}
}

// Message builds a text outcome.
func Message(text string) Outcome {
	return Outcome{Kind: OutcomeMessage, Text: text}
}

// ParseOutcome decodes a response body. A truthy "redirect" wins over "message";
// bodies that are valid JSON but not objects render as an empty message.
// A leading UTF-8 byte order mark is ignored.
func ParseOutcome(body []byte) (Outcome, error) {
	body = bytes.TrimPrefix(body, utf8BOM)

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return Outcome{}, fmt.Errorf("parse response body: %w", err)
	}

	switch v := value.(type) {
	case nil:
		return Outcome{}, ErrNullResponse
	case map[string]any:
		if redirect, ok := v["redirect"]; ok && truthy(redirect) {
			return Redirect(displayText(redirect)), nil
		}
		return Message(displayText(v["message"])), nil
	default:
		return Message(""), nil
	}
}

// truthy reports whether a decoded JSON value would pass a page's if-test.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

// displayText mirrors how a page stringifies a value assigned as text content.
func displayText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return numberText(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = displayText(item)
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// numberText formats a number the way a page converts it to a string:
// plain decimals in [1e-6, 1e21), exponent form outside it.
func numberText(f float64) string {
	abs := math.Abs(f)
	if abs == 0 {
		return "0"
	}
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	text := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(text, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}
