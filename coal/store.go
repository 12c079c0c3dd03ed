package coal

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/256dpi/lungo"
	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type ctxKey struct{}

var hasTransaction = ctxKey{}

// ErrTransactionConflict is returned if a transaction could not be committed
// due to a conflicting write. The operation had no effect and may be retried
// as a whole.
var ErrTransactionConflict = xo.BF("transaction conflict")

// MustConnect will call Connect and panic on errors.
func MustConnect(uri string, reporter func(error)) *Store {
	// connect store
	store, err := Connect(uri, reporter)
	if err != nil {
		panic(err)
	}

	return store
}

// Connect will connect to the specified database and return a new store. The
// default database is taken from the path of the URI.
func Connect(uri string, reporter func(error)) (*Store, error) {
	// parse url
	parsedURL, err := url.Parse(uri)
	if err != nil {
		return nil, xo.W(err)
	}

	// get default db
	defaultDB := strings.Trim(parsedURL.Path, "/")

	// prepare options
	opts := options.Client().ApplyURI(uri)

	// create client
	client, err := lungo.Connect(context.Background(), opts)
	if err != nil {
		return nil, xo.W(err)
	}

	// ping server
	err = client.Ping(context.Background(), nil)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, xo.W(err)
	}

	return &Store{
		Client:    client,
		DefaultDB: defaultDB,
		reporter:  reporter,
	}, nil
}

// MustOpen will call Open and panic on errors.
func MustOpen(store lungo.Store, defaultDB string, reporter func(error)) *Store {
	// open store
	s, err := Open(store, defaultDB, reporter)
	if err != nil {
		panic(err)
	}

	return s
}

// Open will open a lungo database using the provided store. If no store is
// provided a new memory store is used.
func Open(store lungo.Store, defaultDB string, reporter func(error)) (*Store, error) {
	// ensure store
	if store == nil {
		store = lungo.NewMemoryStore()
	}

	// open database
	client, engine, err := lungo.Open(context.Background(), lungo.Options{
		Store:        store,
		ExpireErrors: reporter,
	})
	if err != nil {
		return nil, xo.W(err)
	}

	return &Store{
		Client:    client,
		Engine:    engine,
		DefaultDB: defaultDB,
		reporter:  reporter,
	}, nil
}

// A Store manages the usage of a database client.
type Store struct {
	// The client used by the store.
	Client lungo.IClient

	// The engine used by the store, if opened in memory.
	Engine *lungo.Engine

	// The default db used by the store.
	DefaultDB string

	reporter func(error)
}

// DB returns the database used by this store.
func (s *Store) DB() lungo.IDatabase {
	return s.Client.Database(s.DefaultDB)
}

// C will return the traced collection with the provided name.
func (s *Store) C(name string) *Collection {
	return &Collection{
		name: name,
		coll: s.DB().Collection(name),
	}
}

// T will run the provided function inside a transaction. Nested calls will
// reuse the already started transaction. The transaction is attempted exactly
// once: an error returned by the function aborts it and is passed through,
// while a failed commit is reported as ErrTransactionConflict.
func (s *Store) T(ctx context.Context, fn func(ctx context.Context) error) error {
	// ensure context
	if ctx == nil {
		ctx = context.Background()
	}

	// reuse existing transaction
	if HasTransaction(ctx) {
		return fn(ctx)
	}

	// trace
	ctx, span := xo.Trace(ctx, "coal/Store.T")
	defer span.End()

	// prepare options
	opts := options.Session().
		SetDefaultReadConcern(readconcern.Snapshot()).
		SetDefaultWriteConcern(writeconcern.Majority())

	return s.Client.UseSessionWithOptions(ctx, opts, func(sc lungo.ISessionContext) error {
		// start transaction
		err := sc.StartTransaction()
		if err != nil {
			return xo.W(err)
		}

		// run function
		err = fn(context.WithValue(sc, hasTransaction, true))
		if err != nil {
			// abort transaction
			abortErr := sc.AbortTransaction(sc)
			if abortErr != nil {
				s.report(abortErr)
			}

			// check for transient errors
			if isTransient(err) {
				s.report(err)
				return ErrTransactionConflict.Wrap()
			}

			return err
		}

		// commit transaction
		err = sc.CommitTransaction(sc)
		if err != nil {
			s.report(err)
			return ErrTransactionConflict.Wrap()
		}

		return nil
	})
}

// Close will close the store and its associated client.
func (s *Store) Close() error {
	// disconnect client
	err := s.Client.Disconnect(context.Background())
	if err != nil {
		return xo.W(err)
	}

	// close engine
	if s.Engine != nil {
		s.Engine.Close()
	}

	return nil
}

// HasTransaction returns whether the provided context carries a transaction.
func HasTransaction(ctx context.Context) bool {
	ok, _ := ctx.Value(hasTransaction).(bool)
	return ok
}

func (s *Store) report(err error) {
	if s.reporter != nil {
		s.reporter(xo.W(err))
	}
}

func isTransient(err error) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel("TransientTransactionError")
	}

	return false
}
