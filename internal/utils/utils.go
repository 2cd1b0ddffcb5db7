package utils

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/vitebski/mongo-dummy-seeder/internal/connector"
	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("MONGO_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file
// and reports whether the required connection variables are present.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Infof("No %s file found, using existing environment variables", envFile)
	}

	requiredVars := []string{"MONGODB_URI", "MONGODB_DATABASE"}
	var missingVars []string

	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Warningf("Missing required environment variables: %s", strings.Join(missingVars, ", "))
		logger.Info("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	return true
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// ParseCollectionCounts parses per-collection count overrides of the
// form "users=500,orders=2000" onto a base count for every collection.
func ParseCollectionCounts(s *models.DatabaseSchema, defaultCount int, overrides []string) (map[string]int, error) {
	counts := make(map[string]int, len(s.Collections))
	for _, name := range s.CollectionNames() {
		counts[name] = defaultCount
	}

	for _, override := range overrides {
		parts := strings.SplitN(override, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid count override %q, expected name=count", override)
		}
		name := strings.TrimSpace(parts[0])
		if _, ok := counts[name]; !ok {
			return nil, fmt.Errorf("count override names unknown collection %q", name)
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid count for collection %q: %s", name, parts[1])
		}
		counts[name] = n
	}

	return counts, nil
}

// PrintSeedSummary prints a summary of the seeding run.
func PrintSeedSummary(s *models.DatabaseSchema, requested, loaded map[string]int) {
	totalRequested := 0
	totalLoaded := 0

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("DATABASE SEEDING SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Database: %s\n", s.DatabaseName)
	fmt.Printf("Collections seeded: %d\n", len(s.Collections))

	for _, name := range s.CollectionNames() {
		totalRequested += requested[name]
		totalLoaded += loaded[name]
		if requested[name] == loaded[name] {
			fmt.Printf("  - %s: %d documents\n", name, loaded[name])
		} else {
			fmt.Printf("  - %s: %d/%d documents (duplicates skipped)\n", name, loaded[name], requested[name])
		}
	}

	fmt.Printf("Total documents loaded: %d/%d\n", totalLoaded, totalRequested)
	fmt.Println(strings.Repeat("=", 50))
}

// PrintValidationReport prints the validation result with per-collection
// error detail.
func PrintValidationReport(result *models.ValidationResult) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("SCHEMA AND INDEX VALIDATION RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	names := make([]string, 0, len(result.Collections))
	for name := range result.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cv := result.Collections[name]
		status := "✅"
		if !cv.Passed() {
			status = "❌"
		}
		fmt.Printf("%s %s (sampled %d documents)\n", status, name, cv.DocumentsSampled)
		for _, e := range cv.SchemaErrors {
			fmt.Printf("    schema: %s\n", e)
		}
		for _, e := range cv.IndexErrors {
			fmt.Printf("    index:  %s\n", e)
		}
	}

	summary := result.Summary
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Collections validated: %d\n", summary.TotalCollections)
	fmt.Printf("Schema validation passed: %d/%d\n", summary.SchemaPassedCount, summary.TotalCollections)
	fmt.Printf("Index validation passed: %d/%d\n", summary.IndexPassedCount, summary.TotalCollections)
	fmt.Printf("Documents sampled: %d\n", summary.DocumentsSampled)
	fmt.Printf("Total validation errors: %d\n", summary.TotalErrors)

	if summary.OverallSuccess {
		fmt.Println("✅ All validations passed")
	} else {
		fmt.Println("❌ Validation failed")
	}
	fmt.Println(strings.Repeat("=", 50))
}

// VerifyCollectionCounts verifies that every declared collection holds at
// least minCount documents.
func VerifyCollectionCounts(
	ctx context.Context,
	store connector.Store,
	s *models.DatabaseSchema,
	minCount int,
	logger *logrus.Logger,
) (bool, []string, map[string]int64) {
	logger.Infof("Verifying that all collections have at least %d document(s)...", minCount)

	emptyCollections := []string{}
	underPopulated := make(map[string]int64)

	for _, name := range s.CollectionNames() {
		count, err := store.CountDocuments(ctx, name)
		if err != nil {
			logger.Warningf("Could not verify document count for collection: %s", name)
			emptyCollections = append(emptyCollections, name)
			continue
		}

		if count == 0 {
			logger.Warningf("Collection %s has no documents", name)
			emptyCollections = append(emptyCollections, name)
		} else if count < int64(minCount) {
			logger.Warningf("Collection %s has only %d/%d expected documents", name, count, minCount)
			underPopulated[name] = count
		}
	}

	success := len(emptyCollections) == 0 && len(underPopulated) == 0
	if success {
		logger.Info("Verification successful: all collections meet the minimum document count")
	}

	return success, emptyCollections, underPopulated
}
