package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/identity-service/internal/auth"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/principal"
	principalpg "github.com/frahmantamala/identity-service/internal/principal/postgres"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample accounts",
	Long:  `Seed the database with a root operator and a sample operator for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{
			TranslateError: true,
		})
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"identity_claims", "users", "operators", "root_operators"} {
				if err := gormDB.Exec("TRUNCATE TABLE " + table).Error; err != nil {
					log.Fatalf("failed to truncate %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		users, operators, rootOperators := principalpg.NewStores(gormDB)
		directory := principal.NewDirectory(users, operators, rootOperators)

		ctx := context.Background()
		hash, err := auth.HashPassword("password", cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		seedPrincipals := []principal.Principal{
			&datamodel.RootOperator{Account: datamodel.Account{
				ID:           uuid.NewString(),
				Name:         "Root Operator",
				Email:        "root@example.com",
				PasswordHash: hash,
				PhoneNumber:  "+15550000001",
				IsActive:     true,
			}},
			&datamodel.Operator{
				Account: datamodel.Account{
					ID:           uuid.NewString(),
					Name:         "Content Operator",
					Email:        "operator@example.com",
					PasswordHash: hash,
					PhoneNumber:  "+15550000002",
					IsActive:     true,
				},
				Permissions: datamodel.PermissionList{
					datamodel.CapabilityUsers,
					datamodel.CapabilityPosts,
					datamodel.CapabilityGallery,
				},
			},
		}

		for _, p := range seedPrincipals {
			store := directory.Store(p.Kind())
			if _, err := store.GetByEmail(ctx, p.Base().Email); err == nil {
				fmt.Printf("%s already exists: %s\n", p.Kind(), p.Base().Email)
				continue
			} else if !errors.Is(err, principal.ErrNotFound) {
				log.Fatalf("failed to check existing %s: %v", p.Kind(), err)
			}

			if err := store.Create(ctx, p); err != nil {
				log.Fatalf("failed to seed %s: %v", p.Kind(), err)
			}
			fmt.Printf("Seeded %s: %s\n", p.Kind(), p.Base().Email)
		}
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
}
