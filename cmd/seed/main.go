package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/catalog"
	"github.com/ikkim/storefront-backend/internal/db"
	"gorm.io/gorm"
)

func main() {
	yes := flag.Bool("y", false, "import without asking for confirmation")
	adminEmail := flag.String("admin", "", "create or promote this user to the admin role")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/seed [-y] [-admin email] [catalog.xlsx]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 1 || (flag.NArg() == 0 && *adminEmail == "") {
		flag.Usage()
		os.Exit(2)
	}

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	ctx := context.Background()

	if *adminEmail != "" {
		if err := ensureAdmin(ctx, repository.NewUserRepository(db.GetDB()), *adminEmail); err != nil {
			log.Fatal("Failed to set up admin:", err)
		}
	}
	if flag.NArg() == 0 {
		return
	}
	filePath := flag.Arg(0)

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	file, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	products, err := catalog.Read(file)
	file.Close()
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	optionTypes := 0
	for _, p := range products {
		optionTypes += len(p.OptionTypes)
	}
	fmt.Printf("Products to import: %d (option types: %d)\n", len(products), optionTypes)

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	result, err := catalog.Import(ctx, products,
		repository.NewProductRepository(db.GetDB()), repository.NewOptionRepository(db.GetDB()))
	if err != nil {
		log.Fatal("Import failed:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  Created: %d\n  Skipped (already present): %d\n", result.Created, result.Skipped)
}

// ensureAdmin gives email the admin role, creating the user row if the
// account has never placed an order.
func ensureAdmin(ctx context.Context, users repository.UserRepository, email string) error {
	user, err := users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &model.User{Email: email, Name: email, Role: model.RoleAdmin}
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		fmt.Printf("Created admin user %s (id %d)\n", email, user.ID)
		return nil
	}
	if err != nil {
		return err
	}
	if user.Role == model.RoleAdmin {
		fmt.Printf("User %s is already an admin\n", email)
		return nil
	}
	if err := users.UpdateRole(ctx, user.ID, model.RoleAdmin); err != nil {
		return err
	}
	fmt.Printf("Promoted user %s (id %d) to admin\n", email, user.ID)
	return nil
}
