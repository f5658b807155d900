package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dbfs "github.com/garnizeh/fieldlog/db"
	"github.com/garnizeh/fieldlog/internal/config"
	"github.com/garnizeh/fieldlog/internal/db"
	"github.com/garnizeh/fieldlog/internal/repository/sqlite"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	adminEmail := flag.String("admin-email", "", "Create an admin login and engineer profile with this email")
	adminPassword := flag.String("admin-password", "", "Password for -admin-email")
	adminName := flag.String("admin-name", "Administrator", "Full name for -admin-email")
	adminCode := flag.String("admin-code", "ADM001", "Employee code for -admin-email")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// run migrations and seed using internal/db.Migrate
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Database initialized successfully.")

	if *adminEmail == "" {
		return
	}
	repo := sqlite.New(database, database.Logger())
	if err := bootstrapAdmin(ctx, repo, *adminEmail, *adminPassword, *adminName, *adminCode); err != nil {
		fmt.Fprintf(os.Stderr, "Admin bootstrap error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Admin %s ready.\n", *adminEmail)
}

// bootstrapAdmin creates the first admin. The role lives on the engineer
// row; nothing about the email grants it.
func bootstrapAdmin(ctx context.Context, repo *sqlite.SQLiteRepo, email, password, name, code string) error {
	if len(password) < 8 {
		return errors.New("-admin-password must be at least 8 characters")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u = &models.User{Email: email, FullName: name, PasswordHash: string(hash)}
		if _, err := repo.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
	}

	e, err := repo.GetEngineerByUserID(ctx, u.ID)
	if err != nil {
		return err
	}
	if e != nil {
		e.Role = models.RoleAdmin
		e.IsActive = true
		return repo.UpdateEngineer(ctx, e)
	}

	uid := u.ID
	e = &models.Engineer{
		UserID:                &uid,
		EmployeeID:            code,
		FullName:              name,
		Email:                 email,
		Role:                  models.RoleAdmin,
		WeeklyHourRequirement: models.DefaultWeeklyHours,
		IsActive:              true,
	}
	if _, err := repo.CreateEngineer(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("employee code %s is taken; pass -admin-code", code)
		}
		return fmt.Errorf("create engineer: %w", err)
	}
	return nil
}
