package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/hearth/internal/home"
)

// APIError captures non-2xx responses.
type APIError struct {
	StatusCode int
	// Message is the server's {"message"}, {"error"} or {"detail"} text, or the trimmed body.
	Message string
	RawBody []byte
}

func (e *APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("hearth: API error (status=")
	b.WriteString(strconv.Itoa(e.StatusCode))
	b.WriteString(")")
	if m := strings.TrimSpace(e.Message); m != "" {
		b.WriteString(": ")
		b.WriteString(m)
	}
	return b.String()
}

// IsFamilyRejected reports whether the server answered 400. Clients treat
// that as a refused family and log out.
func IsFamilyRejected(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusBadRequest
}

// IsBadInput reports a 400 that refused the request itself (a negative
// quantity, a blank note) rather than the family. The session survives these.
func IsBadInput(err error) bool {
	var ae *APIError
	return IsFamilyRejected(err) && errors.As(err, &ae) &&
		strings.HasPrefix(ae.Message, home.ErrInvalidInput.Error())
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

func buildAPIError(status int, body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	ae := &APIError{StatusCode: status, RawBody: body, Message: trimmed}

	if strings.HasPrefix(trimmed, "{") {
		var obj struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Detail  string `json:"detail"`
		}
		if err := json.Unmarshal(body, &obj); err == nil {
			switch {
			case obj.Message != "":
				ae.Message = obj.Message
			case obj.Error != "":
				ae.Message = obj.Error
			case obj.Detail != "":
				ae.Message = obj.Detail
			}
		}
	}
	if ae.Message == "" {
		ae.Message = http.StatusText(status)
	}
	return ae
}
