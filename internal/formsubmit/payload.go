package formsubmit

import (
	"bytes"
	"encoding/json"
)

const (
	// FormID identifies the registration form element on the page.
	FormID = "reg-form"
	// ResponseMessageID identifies the element whose text reflects the submit outcome.
	ResponseMessageID = "responseMessage"
	// SubmitPath is the endpoint, relative to the page origin, that receives the payload.
	SubmitPath = "/submit"
	// FallbackMessage is shown for every transport or parse failure.
	FallbackMessage = "An error occurred. Please try again."
)

// FieldIDs lists the recognised form fields in payload order.
var FieldIDs = []string{
	"name",
	"email",
	"phone",
	"dob",
	"street",
	"city",
	"state",
	"postal",
	"country",
	"institution",
	"student-id",
	"message",
}

// Field is a single name/value pair of the payload.
type Field struct {
	Name  string
	Value string
}

// Payload is the registration payload sent on each submit. It keeps FieldIDs order.
type Payload []Field

// Collect reads every recognised field from src as raw text.
func Collect(src FieldSource) Payload {
	payload := make(Payload, 0, len(FieldIDs))
	for _, id := range FieldIDs {
		payload = append(payload, Field{Name: id, Value: src.FieldValue(id)})
	}
	return payload
}

// Get returns the value for name, or "" when absent.
func (p Payload) Get(name string) string {
	for _, f := range p {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// MarshalJSON encodes the payload as a flat JSON object in field order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
