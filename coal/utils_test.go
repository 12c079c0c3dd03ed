package coal

import (
	"testing"
	"time"

	"github.com/256dpi/xo"
)

var lungoStore = MustOpen(nil, "test-quill-coal", xo.Panic)

type thing struct {
	ID      ID        `bson:"_id"`
	Name    string    `bson:"name"`
	Created time.Time `bson:"createdAt"`
}

func withTester(t *testing.T, fn func(*testing.T, *Tester)) {
	tester := NewTester(lungoStore, "things")
	tester.Clean()
	fn(t, tester)
}
