package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitebski/mongo-dummy-seeder/internal/connector"
	"github.com/vitebski/mongo-dummy-seeder/internal/generator"
	"github.com/vitebski/mongo-dummy-seeder/internal/schema"
	"github.com/vitebski/mongo-dummy-seeder/internal/seeder"
	"github.com/vitebski/mongo-dummy-seeder/internal/utils"
	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

func main() {
	var (
		uri          string
		database     string
		schemaFile   string
		records      int
		countFlags   []string
		batchSize    int
		seed         int64
		sampleSize   int
		minDocuments int
		envFile      string
		logLevel     string
		skipClear    bool
		validateOnly bool
		verify       bool
	)

	rootCmd := &cobra.Command{
		Use:   "mongo-dummy-seeder",
		Short: "A tool to seed MongoDB databases with realistic dummy data",
		Long: `MongoDB Dummy Data Seeder

A Go tool that seeds MongoDB databases with realistic dummy data from a
declarative schema definition, preserving cross-collection references,
creating the declared indexes, and validating the result.`,
		Run: func(cmd *cobra.Command, args []string) {
			// Setup logging
			logger := utils.SetupLogging(logLevel)

			// Load environment variables
			utils.LoadEnvironmentVariables(envFile, logger)

			if uri == "" {
				uri = os.Getenv("MONGODB_URI")
			}
			if database == "" {
				database = os.Getenv("MONGODB_DATABASE")
			}

			// Load and validate the schema definition
			dbSchema, err := schema.LoadFromFile(schemaFile)
			if err != nil {
				var defErr *models.SchemaDefinitionError
				if errors.As(err, &defErr) {
					logger.Error("Schema definition is invalid:")
					for _, v := range defErr.Violations {
						logger.Errorf("  - %s", v)
					}
				} else {
					logger.Errorf("Failed to load schema: %v", err)
				}
				os.Exit(1)
			}
			if database == "" {
				database = dbSchema.DatabaseName
			}

			counts, err := utils.ParseCollectionCounts(dbSchema, records, countFlags)
			if err != nil {
				logger.Errorf("Invalid collection counts: %v", err)
				os.Exit(1)
			}

			// Connect to MongoDB
			ctx := context.Background()
			store := connector.NewMongoConnector(uri, database, logger)
			if err := store.Connect(ctx); err != nil {
				logger.Errorf("Failed to connect to MongoDB: %v", err)
				os.Exit(1)
			}
			defer store.Disconnect(ctx)

			// Create the document generator
			cfg := generator.DefaultConfig()
			var gen *generator.DocumentGenerator
			if seed != 0 {
				gen = generator.NewSeededDocumentGenerator(seed, cfg, logger)
			} else {
				gen = generator.NewDocumentGenerator(cfg, logger)
			}

			dbSeeder := seeder.NewDatabaseSeeder(store, dbSchema, gen, batchSize, sampleSize, logger)

			if !validateOnly {
				if !skipClear {
					logger.Info("Clearing existing data...")
					if err := dbSeeder.ClearDatabase(ctx); err != nil {
						logger.Errorf("Failed to clear database: %v", err)
						os.Exit(1)
					}
				}

				logger.Info("Starting database seeding...")
				if err := dbSeeder.SeedAllCollections(ctx, counts); err != nil {
					logger.Errorf("Seeding failed: %v", err)
					os.Exit(1)
				}

				logger.Info("Creating indexes...")
				if err := dbSeeder.CreateIndexes(ctx); err != nil {
					logger.Errorf("Index creation failed: %v", err)
					os.Exit(1)
				}

				utils.PrintSeedSummary(dbSchema, counts, dbSeeder.LoadedCounts())
			}

			// Validate the seeded data
			logger.Info("Validating seed data...")
			result, err := dbSeeder.ValidateSeedData(ctx)
			if err != nil {
				logger.Errorf("Validation failed to run: %v", err)
				os.Exit(1)
			}
			utils.PrintValidationReport(result)

			// Verify document counts if requested
			verificationSuccess := true
			if verify {
				verificationSuccess, _, _ = utils.VerifyCollectionCounts(ctx, store, dbSchema, minDocuments, logger)
			}

			if !result.Summary.OverallSuccess || !verificationSuccess {
				os.Exit(1)
			}
		},
	}

	// Define flags
	rootCmd.Flags().StringVarP(&uri, "uri", "u", "", "MongoDB connection URI (default: mongodb://localhost:27017)")
	rootCmd.Flags().StringVarP(&database, "database", "d", "", "MongoDB database name (default: schema's database_name)")
	rootCmd.Flags().StringVarP(&schemaFile, "schema", "s", "db_schema.json", "Path to the JSON schema definition")
	rootCmd.Flags().IntVarP(&records, "records", "r", 10, "Default number of documents to generate per collection")
	rootCmd.Flags().StringSliceVarP(&countFlags, "counts", "c", nil, "Per-collection count overrides (name=count, comma-separated or repeated)")
	rootCmd.Flags().IntVarP(&batchSize, "batch-size", "b", 1000, "Bulk insert batch size")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for deterministic generation (0 = random)")
	rootCmd.Flags().IntVar(&sampleSize, "sample-size", 10, "Documents sampled per collection during validation")
	rootCmd.Flags().IntVarP(&minDocuments, "min-documents", "n", 1, "Minimum number of documents each collection should have for verification")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&skipClear, "skip-clear", false, "Do not drop collections before seeding")
	rootCmd.Flags().BoolVar(&validateOnly, "validate-only", false, "Only validate existing data without seeding")
	rootCmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify that all collections hold the minimum number of documents")

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
