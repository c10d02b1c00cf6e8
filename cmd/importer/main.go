package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	categoryrepo "storefront/internal/repository/category"
	productrepo "storefront/internal/repository/product"

	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a catalog file (.csv or .json)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger("importer")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.New(productrepo.NewPostgres(pool, logger), categoryrepo.NewPostgres(pool), logger)

	start := time.Now()
	var count int
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		count, err = imp.RunJSON(ctx, f)
	case ".csv":
		count, err = imp.RunCSV(ctx, f)
	default:
		logger.Fatal("unsupported file type", zap.String("file", filePath))
	}
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}

	logger.Info("import finished",
		zap.String("file", filePath),
		zap.Int("rows", count),
		zap.Duration("took", time.Since(start).Truncate(time.Millisecond)))
}
