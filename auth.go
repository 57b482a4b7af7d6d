package main

import (
	"fmt"
	"strings"

	"numcap/models"

	"golang.org/x/crypto/bcrypt"
)

// minSecretLen applies to every client secret, the seeded admin included.
const minSecretLen = 12

// RegisterClient creates an API client with the regular client role.
func RegisterClient(name, secret string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("client name required")
	}
	if len(secret) < minSecretLen {
		return fmt.Errorf("secret too short (min %d)", minSecretLen)
	}
	var existing models.Client
	if err := db.Where("name = ?", name).First(&existing).Error; err == nil {
		return fmt.Errorf("client already exists")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	var role models.Role
	if err := db.Where("name = ?", models.RoleClient).First(&role).Error; err != nil {
		role = models.Role{Name: models.RoleClient, Description: "may submit captchas"}
		if err2 := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err2 != nil {
			return fmt.Errorf("failed to ensure client role: %v", err2)
		}
	}
	rid := role.ID
	client := models.Client{Name: name, HashedSecret: hashed, RoleID: &rid, Active: true}
	if err := db.Create(&client).Error; err != nil {
		if isUniqueConstraintError(err) { // race after the initial check
			return fmt.Errorf("client already exists")
		}
		return err
	}
	return nil
}

// AuthenticateClient checks a client's secret and returns it with its role loaded.
func AuthenticateClient(name, secret string) (models.Client, error) {
	name = strings.TrimSpace(name)
	var client models.Client
	if err := db.Preload("Role").Where("name = ?", name).First(&client).Error; err != nil {
		return models.Client{}, fmt.Errorf("invalid credentials")
	}
	if !client.Active {
		return models.Client{}, fmt.Errorf("client disabled")
	}
	if err := bcrypt.CompareHashAndPassword(client.HashedSecret, []byte(secret)); err != nil {
		return models.Client{}, fmt.Errorf("invalid credentials")
	}
	return client, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
