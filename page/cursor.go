// Package page implements keyset pagination over aggregation pipelines.
//
// Rows are always ordered by descending creation time with ties broken by the
// ascending id. A page request carries the position of the last row seen and
// receives the following rows together with the count of all matching rows
// and the position to request the next page from.
package page

import (
	"time"

	"github.com/256dpi/quill/coal"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Cursor is the position of the last row of a page.
type Cursor struct {
	ID        coal.ID   `json:"_id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Row is implemented by paginated results to report their position.
type Row interface {
	Position() Cursor
}

// Decode will decode a cursor from the raw request values. The cursor is only
// valid if both values are present and well-formed, otherwise nil is returned
// and the first page is requested.
func Decode(lastCreatedAt, lastID string) *Cursor {
	// check presence
	if lastCreatedAt == "" || lastID == "" {
		return nil
	}

	// parse time
	createdAt, err := ParseTime(lastCreatedAt)
	if err != nil {
		return nil
	}

	// parse id
	id, err := coal.FromHex(lastID)
	if err != nil {
		return nil
	}

	return &Cursor{
		ID:        id,
		CreatedAt: createdAt,
	}
}

// Encode will return the cursor that positions after the provided row.
func Encode(row Row) *Cursor {
	cursor := row.Position()
	return &cursor
}

// ParseTime will parse an ISO-8601 timestamp. Timestamps without a zone are
// interpreted as UTC.
func ParseTime(str string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		t, err = time.Parse(layout, str)
		if err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, err
}
