package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookbazaar/internal/catalog"
	"github.com/xenking/bookbazaar/internal/domain/auth"
	"github.com/xenking/bookbazaar/internal/storage/postgres"
)

type options struct {
	databaseURL string
	booksFile   string
	workers     int

	jwtSecret string
	issuer    string
	userID    string
	adminID   string
	tokenTTL  time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&o.booksFile, "books-file", "", "path to books JSON file, optionally gzip-compressed (.gz); the embedded sample catalog when empty")
	flag.IntVar(&o.workers, "workers", 4, "concurrent upserts")
	flag.StringVar(&o.jwtSecret, "jwt-secret", "", "mint development tokens with this secret (or JWT_SECRET env)")
	flag.StringVar(&o.issuer, "issuer", "", "issuer claim of minted tokens")
	flag.StringVar(&o.userID, "user-id", "dev-user", "subject of the minted user token")
	flag.StringVar(&o.adminID, "admin-id", "dev-admin", "subject of the minted admin token")
	flag.DurationVar(&o.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of minted tokens")
	flag.Parse()

	if o.databaseURL == "" {
		o.databaseURL = os.Getenv("DATABASE_URL")
	}
	if o.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if o.jwtSecret == "" {
		o.jwtSecret = os.Getenv("JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, o); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, o options) error {
	slog.Info("reading books", slog.String("path", o.booksFile))

	books, err := catalog.Load(o.booksFile)
	if err != nil {
		return errors.Wrap(err, "read books")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, o.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("upserting books", slog.Int("count", len(books)), slog.Int("workers", o.workers))

	repo := postgres.NewBookRepository(pool)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.workers, 1))
	for _, b := range books {
		g.Go(func() error {
			if err := repo.Upsert(ctx, b); err != nil {
				return err
			}
			slog.Info("upserted book", slog.String("id", b.ID), slog.String("title", b.Title), slog.Int("stock", b.Stock))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "upsert books")
	}

	if o.jwtSecret == "" {
		return nil
	}
	return mintTokens(o)
}

// mintTokens prints development bearer tokens for a customer and an admin.
// Production tokens come from the authentication service.
func mintTokens(o options) error {
	issuer := auth.NewIssuer([]byte(o.jwtSecret), o.issuer)
	for _, id := range []auth.Identity{
		{UserID: o.userID, Role: auth.RoleUser},
		{UserID: o.adminID, Role: auth.RoleAdmin},
	} {
		token, err := issuer.Sign(id, o.tokenTTL)
		if err != nil {
			return errors.Wrapf(err, "sign %s token", id.Role)
		}
		slog.Info("minted token", slog.String("user_id", id.UserID), slog.String("role", id.Role))
		fmt.Printf("%s\t%s\n", id.Role, token)
	}
	return nil
}
