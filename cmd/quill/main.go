package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/256dpi/xo"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/tomb.v2"

	"github.com/256dpi/quill"
	"github.com/256dpi/quill/blaze"
	"github.com/256dpi/quill/coal"
)

func main() {
	// load .env file if present
	_ = godotenv.Load()

	// get config
	config, err := configFromEnv()
	if err != nil {
		exit(err)
	}

	// prepare reporter
	reporter := xo.Sink("ERROR")
	report := func(err error) {
		_, _ = fmt.Fprintf(reporter, "%+v\n", err)
	}

	// connect store
	store := coal.MustConnect(config.MongoURI, report)
	defer store.Close()

	// prepare images
	var images *blaze.Images
	if config.MinioEndpoint != "" {
		client, err := minio.New(config.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(config.MinioAccessKey, config.MinioSecretKey, ""),
			Secure: config.MinioSecure,
		})
		if err != nil {
			exit(err)
		}

		images = &blaze.Images{
			Service: blaze.NewMinio(client, config.MinioBucket, config.MinioBaseURL),
		}
	}

	// create blog
	blog, err := quill.NewBlog(config, store, images, report)
	if err != nil {
		exit(err)
	}

	// ensure indexes
	err = blog.EnsureIndexes()
	if err != nil {
		exit(err)
	}

	// run command
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		err = blog.Seed(context.Background())
	} else {
		err = serve(blog)
	}
	if err != nil {
		exit(err)
	}
}

func serve(blog *quill.Blog) error {
	// prepare server
	server := &http.Server{
		Addr:              blog.Config.Addr,
		Handler:           quill.NewHandler(blog, xo.Sink("QUILL")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// prepare signals
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	var t tomb.Tomb

	// run server
	t.Go(func() error {
		fmt.Printf("==> serving on %s\n", server.Addr)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	// await signal
	t.Go(func() error {
		select {
		case <-signals:
		case <-t.Dying():
		}

		// shutdown server
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return server.Shutdown(ctx)
	})

	return t.Wait()
}

func configFromEnv() (quill.Config, error) {
	// parse durations
	accessTTL, err := duration("QUILL_ACCESS_TTL")
	if err != nil {
		return quill.Config{}, err
	}
	refreshTTL, err := duration("QUILL_REFRESH_TTL")
	if err != nil {
		return quill.Config{}, err
	}

	// parse limits
	defaultLimit, err := integer("QUILL_DEFAULT_LIMIT")
	if err != nil {
		return quill.Config{}, err
	}
	maxLimit, err := integer("QUILL_MAX_LIMIT")
	if err != nil {
		return quill.Config{}, err
	}

	// parse origins
	var origins []string
	for _, origin := range strings.Split(os.Getenv("QUILL_ERROR_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return quill.Config{
		MongoURI:         env("QUILL_MONGO_URI", "mongodb://0.0.0.0/quill"),
		Addr:             os.Getenv("QUILL_ADDR"),
		Secret:           os.Getenv("QUILL_SECRET"),
		Issuer:           os.Getenv("QUILL_ISSUER"),
		ErrorOrigins:     origins,
		AccessTTL:        accessTTL,
		RefreshTTL:       refreshTTL,
		RefreshCookie:    os.Getenv("QUILL_REFRESH_COOKIE"),
		SecureCookies:    os.Getenv("QUILL_SECURE_COOKIES") == "true",
		DefaultLimit:     defaultLimit,
		MaxLimit:         maxLimit,
		SearchIndex:      os.Getenv("QUILL_SEARCH_INDEX"),
		PlaceholderImage: os.Getenv("QUILL_PLACEHOLDER_IMAGE"),
		MinioEndpoint:    os.Getenv("QUILL_MINIO_ENDPOINT"),
		MinioAccessKey:   os.Getenv("QUILL_MINIO_ACCESS_KEY"),
		MinioSecretKey:   os.Getenv("QUILL_MINIO_SECRET_KEY"),
		MinioBucket:      os.Getenv("QUILL_MINIO_BUCKET"),
		MinioSecure:      os.Getenv("QUILL_MINIO_SECURE") == "true",
		MinioBaseURL:     os.Getenv("QUILL_MINIO_BASE_URL"),
	}, nil
}

func env(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func duration(key string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, xo.F("invalid %s: %s", key, value)
	}

	return d, nil
}

func integer(key string) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, xo.F("invalid %s: %s", key, value)
	}

	return n, nil
}

func exit(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
	os.Exit(1)
}
