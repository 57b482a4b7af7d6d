package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"numcap/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_client <name> <secret> [administrator|client]")
		os.Exit(2)
	}
	name := os.Args[1]
	secret := os.Args[2]
	roleName := models.RoleClient
	if len(os.Args) > 3 {
		roleName = os.Args[3]
	}
	if roleName != models.RoleClient && roleName != models.RoleAdministrator {
		log.Fatalf("unknown role %q", roleName)
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	// ensure role exists
	role := models.Role{Name: roleName}
	if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
		log.Fatalf("ensure role: %v", err)
	}

	var existing models.Client
	if err := db.Where("name = ?", name).First(&existing).Error; err == nil {
		fmt.Printf("client %s already exists (id=%d)\n", name, existing.ID)
		os.Exit(0)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	rid := role.ID
	client := models.Client{Name: name, HashedSecret: hashed, RoleID: &rid, Active: true}
	if err := db.Create(&client).Error; err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	fmt.Printf("created client %s id=%d role=%s\n", name, client.ID, roleName)
}
