package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"numcap/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Permission errors are logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		// roles first so clients can reference them
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
		if err := db.AutoMigrate(&models.Client{}); err != nil {
			log.Printf("migration warning (clients): %v", err)
		}
		if err := db.AutoMigrate(&models.Attempt{}); err != nil {
			log.Printf("migration warning (attempts): %v", err)
		}
	}
	seedDB()
}

func seedDB() {
	roles := []models.Role{
		{Name: models.RoleAdministrator, Description: "full access"},
		{Name: models.RoleClient, Description: "may submit captchas"},
	}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	var count int64
	db.Model(&models.Client{}).Where("name = ?", "admin").Count(&count)
	if count == 0 {
		seedAdmin()
	}
	ensureUploadBase()
}

func seedAdmin() {
	secret, err := adminSeedSecret()
	if err != nil {
		log.Printf("WARN admin client not seeded: %v", err)
		return
	}
	var role models.Role
	if err := db.Where("name = ?", models.RoleAdministrator).First(&role).Error; err != nil {
		log.Printf("failed to find administrator role: %v", err)
	}
	rid := role.ID
	admin := models.Client{Name: "admin", RoleID: &rid, Active: true}
	admin.HashedSecret, _ = bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	db.Create(&admin)
	log.Println("Seeded admin client: name=admin")
}

// defaultAdminSecret is only meant for local development.
const defaultAdminSecret = "admin-change-me"

// adminSeedSecret returns ADMIN_SECRET (or the development default), held to
// the same minimum length as any registered client.
func adminSeedSecret() (string, error) {
	secret := os.Getenv("ADMIN_SECRET")
	if secret == "" {
		secret = defaultAdminSecret
	}
	if len(secret) < minSecretLen {
		return "", fmt.Errorf("ADMIN_SECRET too short (min %d)", minSecretLen)
	}
	return secret, nil
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for stored captcha uploads (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}

// maxUploadBytes caps accepted captcha uploads (MAX_UPLOAD_BYTES env, default 1 MiB).
func maxUploadBytes() int64 {
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return 1 << 20
}

// recordAttempt stores a solve attempt. Without a database (tests, dry runs) it only logs.
func recordAttempt(a *models.Attempt) {
	if db == nil {
		log.Printf("attempt (not stored) file=%s success=%v reason=%s", a.FileName, a.Success, a.Reason)
		return
	}
	if err := db.Create(a).Error; err != nil {
		log.Printf("ERROR store attempt %s: %v", a.FileName, err)
	}
}
