package db

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
)

// AllModels lists every persisted entity, in AutoMigrate order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{}, &models.Profile{}, &models.BankRecord{},
		&models.Contract{}, &models.TimeSheet{}, &models.DailySheet{},
		&models.Invoice{}, &models.Withdrawal{},
	}
}

func ConnectAndMigrate() (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check the environment configuration")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		slog.Warn("retrying db connection", "err", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	slog.Info("db connected", "dsn", masked)

	// If MIGRATIONS=1 (or true) we run sql migrations via golang-migrate; otherwise AutoMigrate (dev convenience)
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range AllModels() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"users", "contracts", "timesheets", "invoices", "withdrawals"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	// Seeding only when explicitly requested (e.g. development) via DB_SEED=1|true
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

// seed inserts a demo hirer/freelancer pair with an accepted contract.
func seed(db *gorm.DB) {
	users := []struct {
		email      string
		first      string
		last       string
		membership string
	}{
		{"hirer@example.com", "Demo", "Hirer", models.MembershipHirer},
		{"freelancer@example.com", "Demo", "Freelancer", models.MembershipFreelancer},
	}
	ids := map[string]uint{}
	for _, u := range users {
		var existing models.User
		if err := db.Where("email = ?", u.email).First(&existing).Error; err == nil {
			ids[u.membership] = existing.ID
			continue
		}
		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		user := models.User{Email: u.email, Password: string(hash), FirstName: u.first, LastName: u.last}
		if err := db.Create(&user).Error; err != nil {
			continue
		}
		db.Create(&models.Profile{UserID: user.ID, Membership: u.membership})
		db.Create(&models.BankRecord{UserID: user.ID})
		ids[u.membership] = user.ID
	}
	hirerID, freelancerID := ids[models.MembershipHirer], ids[models.MembershipFreelancer]
	if hirerID == 0 || freelancerID == 0 {
		return
	}
	var existing models.Contract
	if err := db.Where("hirer_id = ? AND freelancer_id = ?", hirerID, freelancerID).First(&existing).Error; err == gorm.ErrRecordNotFound {
		rate, _ := money.Parse("20.00")
		db.Create(&models.Contract{
			HirerID:        hirerID,
			FreelancerID:   &freelancerID,
			Title:          "Demo contract",
			Description:    "Seeded hourly contract",
			Duration:       models.DurationShort,
			ContractType:   models.ContractHourly,
			HourlyRate:     rate,
			MaxWeeklyHours: 40,
			Accepted:       true,
		})
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
