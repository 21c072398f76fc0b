package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"keygate/backend/internal/config"
	"keygate/backend/internal/domain"
	"keygate/backend/internal/service"
	"keygate/backend/internal/storage"
	"keygate/backend/internal/storage/memory"
	"keygate/backend/internal/storage/postgres"

	"github.com/google/uuid"
)

func main() {
	keyType := flag.String("type", "standard", "license key type")
	note := flag.String("note", "", "operator note attached to the key")
	expiresIn := flag.Duration("expires-in", 0, "validity window, e.g. 720h (0 = never expires)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: create-key [-type <type>] [-note <note>] [-expires-in <duration>] <key-value>")
		os.Exit(1)
	}

	keyValue := flag.Arg(0)

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 创建存储。配置了数据库就写数据库，否则写内存（仅用于演示）。
	var store storage.Store
	if cfg.Database.Type != "" {
		opts := postgres.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}
		switch cfg.Database.Type {
		case "mysql":
			store, err = postgres.NewMySQLStore(cfg.Database.DSN, opts)
		default:
			store, err = postgres.NewStore(cfg.Database.DSN, opts)
		}
		if err != nil {
			fmt.Printf("Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	} else {
		store = memory.NewStore()
	}

	now := time.Now()
	key := &domain.LicenseKey{
		ID:        uuid.New().String(),
		Key:       keyValue,
		Type:      *keyType,
		Status:    domain.StatusActive,
		CreatedAt: now.UnixMilli(),
		Note:      *note,
	}
	if *expiresIn > 0 {
		expiresAt := now.Add(*expiresIn).UnixMilli()
		key.ExpiresAt = &expiresAt
	}

	licenses := service.NewLicenseService(store)
	inserted, err := licenses.Create(key)
	if err != nil {
		fmt.Printf("Failed to create key: %v\n", err)
		os.Exit(1)
	}
	if !inserted {
		fmt.Println("A key with this value already exists, nothing was written.")
		os.Exit(1)
	}

	fmt.Printf("✓ License key created successfully!\n")
	fmt.Printf("  ID:     %s\n", key.ID)
	fmt.Printf("  Key:    %s\n", key.Key)
	fmt.Printf("  Type:   %s\n", key.Type)
	if key.ExpiresAt != nil {
		fmt.Printf("  Expiry: %s\n", time.UnixMilli(*key.ExpiresAt).Format(time.RFC3339))
	} else {
		fmt.Printf("  Expiry: never\n")
	}
	if cfg.Database.Type == "" {
		fmt.Println("\nNote: no database configured, this key exists only in memory")
		fmt.Println("and is lost when this process exits.")
	}
}
