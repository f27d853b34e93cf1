package tests

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Layr-Labs/contract-activity/internal/config"
	"github.com/google/uuid"
)

// GenerateTestDbName returns a random database name safe to use in DDL.
func GenerateTestDbName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate test database name: %w", err)
	}
	return fmt.Sprintf("test_%s", strings.ReplaceAll(id.String(), "-", "")), nil
}

// GetDbConfigFromEnv reads the test database settings. Tests needing a
// database skip when Host is empty.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	port, err := strconv.Atoi(os.Getenv("CONTRACT_ACTIVITY_DATABASE_PORT"))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Host:       os.Getenv("CONTRACT_ACTIVITY_DATABASE_HOST"),
		Port:       port,
		User:       os.Getenv("CONTRACT_ACTIVITY_DATABASE_USER"),
		Password:   os.Getenv("CONTRACT_ACTIVITY_DATABASE_PASSWORD"),
		SchemaName: os.Getenv("CONTRACT_ACTIVITY_DATABASE_SCHEMA_NAME"),
	}
}
