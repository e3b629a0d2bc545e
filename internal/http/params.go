package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"expenses/internal/core"
)

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, core.NewValidationError("id", "id must be a valid UUID")
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(q url.Values, key string) (*core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, core.NewValidationError(key, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", key))
	}
	return &d, nil
}

// queryInt parses an optional integer parameter within [lo, hi].
func queryInt(q url.Values, key string, def, lo, hi int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, core.NewValidationError(key, fmt.Sprintf("%s must be an integer between %d and %d", key, lo, hi))
	}
	return n, nil
}

func queryBool(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.NewValidationError(key, fmt.Sprintf("%s must be true or false", key))
	}
	return b, nil
}

// queryCategory maps category_id to a filter: absent matches everything,
// "none" matches unlabeled transactions.
func queryCategory(q url.Values) (core.CategoryFilter, error) {
	v := strings.TrimSpace(q.Get("category_id"))
	switch {
	case v == "":
		return core.AnyCategory(), nil
	case strings.EqualFold(v, "none"):
		return core.Unlabeled(), nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return core.CategoryFilter{}, core.NewValidationError("category_id", "category_id must be a UUID or none")
	}
	return core.InCategory(id), nil
}

// dateRange reads the start and end parameters.
func dateRange(q url.Values) (start, end *core.Date, err error) {
	if start, err = queryDate(q, "start"); err != nil {
		return nil, nil, err
	}
	if end, err = queryDate(q, "end"); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// parseCategoryRef decodes a JSON category reference: null clears it,
// a string must hold a UUID.
func parseCategoryRef(raw json.RawMessage) (*uuid.UUID, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, core.NewValidationError("category_id", "category_id must be a UUID string or null")
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, core.NewValidationError("category_id", "category_id must be a UUID string or null")
	}
	return &id, nil
}

// amountText accepts an amount sent either as a JSON number or a string.
func amountText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", core.NewValidationError("amount", "amount must be a number")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", core.NewValidationError("amount", "amount must be a number")
	}
	return n.String(), nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
