package page

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/stick"
)

// ParseRequest will parse the pagination parameters "limit", "lastCreatedAt",
// "lastId" and "search" from the provided values. Malformed values are
// reported as a validation error. A limit above max is reduced to max.
func ParseRequest(values url.Values, defaultLimit, maxLimit int64) (Query, error) {
	// prepare query
	query := Query{
		Limit:  defaultLimit,
		Search: strings.TrimSpace(values.Get("search")),
	}

	// get raw cursor
	lastCreatedAt := values.Get("lastCreatedAt")
	lastID := values.Get("lastId")

	// validate
	err := stick.Validate(func(v *stick.Validator) {
		// check limit
		if raw := values.Get("limit"); raw != "" {
			limit, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || limit < 1 {
				v.Report("limit", "limit has to be a number")
			} else {
				query.Limit = limit
			}
		}

		// check cursor time
		if lastCreatedAt != "" {
			if _, err := ParseTime(lastCreatedAt); err != nil {
				v.Report("lastCreatedAt", "lastCreatedAt must be a date")
			}
		}

		// check cursor id
		if lastID != "" && !coal.IsHex(lastID) {
			v.Report("lastId", "invalid id")
		}
	})
	if err != nil {
		return Query{}, err
	}

	// cap limit
	if maxLimit > 0 && query.Limit > maxLimit {
		query.Limit = maxLimit
	}

	// decode cursor
	query.Cursor = Decode(lastCreatedAt, lastID)

	return query, nil
}

// Flag will parse the named boolean filter. It returns nil if the filter is
// absent and a validation error if the value is not literally "true" or
// "false".
func Flag(values url.Values, name string) (*bool, error) {
	switch values.Get(name) {
	case "":
		return nil, nil
	case "true":
		value := true
		return &value, nil
	case "false":
		value := false
		return &value, nil
	default:
		return nil, stick.Invalid(name, name+" must be true or false")
	}
}
