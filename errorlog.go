package quill

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/256dpi/xo"

	"github.com/256dpi/quill/coal"
)

// ErrorLogs stores errors reported by clients.
type ErrorLogs struct {
	store   *coal.Store
	origins []string
}

// Log will store the reported error. Reports without an origin or from an
// origin that is not allowed are rejected.
func (l *ErrorLogs) Log(ctx context.Context, origin, message, stack string) (*ErrorLog, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/ErrorLogs.Log")
	span.Tag("origin", origin)
	defer span.End()

	// check origin
	if origin == "" || (len(l.origins) > 0 && !slices.Contains(l.origins, origin)) {
		return nil, ErrAccessDenied.Wrap()
	}

	// prepare log
	log := &ErrorLog{
		ID:        coal.New(),
		Message:   strings.TrimSpace(message),
		Stack:     strings.TrimSpace(stack),
		Origin:    origin,
		CreatedAt: time.Now(),
	}

	// validate
	err := log.Validate()
	if err != nil {
		return nil, err
	}

	// insert log
	_, err = l.store.C(ErrorLogsCollection).InsertOne(ctx, log)
	if err != nil {
		return nil, err
	}

	return log, nil
}
