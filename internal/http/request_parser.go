package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financas/internal/core"
)

const maxBodyBytes = 1 << 20

// badRequestError marks malformed requests, as opposed to well-formed
// requests carrying invalid values.
type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return badRequestError{msg: fmt.Sprintf(format, args...)}
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month from the query, defaulting each to
// now. Range checks are left to the services.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, badRequest("invalid year %q", v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, badRequest("invalid month %q", v)
		}
		params.Month = m
	}
	return params, nil
}

// readBody returns the request body, rejecting empty and oversized ones.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest("request body larger than %d bytes", maxBodyBytes)
		}
		return nil, badRequest("read request body: %v", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, badRequest("request body is empty")
	}
	return body, nil
}

// decodeJSON decodes the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return unmarshal(body, dst)
}

// decodeOneOrMany accepts either a single JSON object or an array of them.
// batch reports which form was sent.
func decodeOneOrMany[T any](w http.ResponseWriter, r *http.Request) (items []T, batch bool, err error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, false, err
	}
	if body[0] == '[' {
		if err := unmarshal(body, &items); err != nil {
			return nil, true, err
		}
		if len(items) == 0 {
			return nil, true, badRequest("empty item array")
		}
		return items, true, nil
	}
	var item T
	if err := unmarshal(body, &item); err != nil {
		return nil, false, err
	}
	return []T{item}, false, nil
}

func unmarshal(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		// Bad dates are invalid values, not malformed JSON.
		if core.IsValidation(err) {
			return err
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
