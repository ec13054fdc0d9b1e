// Command seed-db loads the product catalog into PostgreSQL. It runs the
// schema migrations first, so it doubles as a database bootstrap tool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/purchase-cart-service/internal/domain/product"
	"github.com/xenking/purchase-cart-service/internal/repository"
)

type productJSON struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	VATRate           decimal.Decimal `json:"vatRate"`
	AvailableQuantity int             `json:"availableQuantity"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file (.json or .json.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, repository.NewProductRepository(pool), catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	return nil
}

func seedCatalog(ctx context.Context, repo *repository.ProductRepository, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	products, err := readCatalog(catalogFile)
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		err := repo.Upsert(ctx, product.Product{
			ID:                p.ID,
			Name:              p.Name,
			UnitPrice:         p.UnitPrice,
			VATRate:           p.VATRate,
			AvailableQuantity: p.AvailableQuantity,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func readCatalog(path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip reader")
		}
		defer gz.Close()
		r = gz
	}

	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return products, nil
}
