package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	"github.com/frahmantamala/expense-tracker/internal/auth"
	"github.com/frahmantamala/expense-tracker/internal/user"
	userPostgres "github.com/frahmantamala/expense-tracker/internal/user/postgres"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	clearData    bool
	seedPassword string
)

type seedAccount struct {
	Email       string
	Name        string
	Department  string
	Designation string
	Rights      access.AccessRights
	Areas       access.AreaOfRights
	// NoAccess leaves the account as a plain submitter without an access record.
	NoAccess bool
}

var seedAccounts = []seedAccount{
	{Email: "reviewer@example.com", Name: "Rina Reviewer", Department: "Operations", Designation: "Team Lead",
		Rights: access.AccessRightsEntry, Areas: access.AreaOfRights{Review: true}},
	{Email: "approver@example.com", Name: "Arif Approver", Department: "Operations", Designation: "Manager",
		Rights: access.AccessRightsEntry, Areas: access.AreaOfRights{Approve: true}},
	{Email: "accounts@example.com", Name: "Ayu Accounts", Department: "Finance", Designation: "Accountant",
		Rights: access.AccessRightsEntry, Areas: access.AreaOfRights{Accounts: true}},
	{Email: "employee@example.com", Name: "Eko Employee", Department: "Sales", NoAccess: true},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed login accounts and access records for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfigAndLogger()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		stores, err := openStores(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer stores.Close(ctx)

		if clearData {
			for _, table := range []string{"project_expenses", "projects", "expenses", "access_control_users", "users"} {
				if err := stores.Gorm.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := auth.HashPassword(seedPassword, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		users := userPostgres.NewUserRepository(stores.Gorm)
		accessService := newAccessService(cfg, stores.Gorm)
		userService := user.NewService(users, accessService, logger.Component("seed"))

		accounts := seedAccounts
		for _, email := range cfg.Access.AdminEmails {
			// default admins need a login but never an access record
			accounts = append(accounts, seedAccount{Email: email, Name: "Administrator", Department: "Management", NoAccess: true})
		}

		for _, a := range accounts {
			email := internal.NormalizeEmail(a.Email)
			if _, err := users.GetByEmail(ctx, email); err == nil {
				fmt.Println("user already exists:", email)
			} else if !errors.Is(err, user.ErrNotFound) {
				log.Fatalf("failed to look up %s: %v", email, err)
			} else {
				if err := userService.Register(ctx, user.NewUser(email, a.Name, a.Department, hash, time.Now())); err != nil {
					log.Fatalf("failed to insert user %s: %v", email, err)
				}
				fmt.Println("Seeded user:", email)
			}
		}

		admin, err := systemActor(cfg, "")
		if err != nil {
			fmt.Println("Skipping access records:", err)
			return
		}

		for _, a := range accounts {
			if a.NoAccess {
				continue
			}
			_, err := accessService.Create(ctx, admin, access.CreateAccessUserDTO{
				Name:         a.Name,
				Email:        a.Email,
				Designation:  a.Designation,
				Department:   a.Department,
				AccessRights: a.Rights,
				AreaOfRights: a.Areas,
			})
			switch {
			case errors.Is(err, access.ErrDuplicateEmail):
				fmt.Println("access record already exists:", a.Email)
			case err != nil:
				log.Fatalf("failed to create access record for %s: %v", a.Email, err)
			default:
				fmt.Println("Seeded access record:", a.Email)
			}
		}
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "Password for every seeded account")
}
