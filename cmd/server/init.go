package main

import (
	"context"
	"time"

	"optometry_report/config"
	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/database"
	"optometry_report/internal/global"

	"github.com/sirupsen/logrus"
)

// InitGlobal initializes config, validator and database connections.
func InitGlobal() {
	initConfig()           // Server configuration
	initColNames()         // Collection names
	initValidator()        // Validator with custom tags
	initDatabase_MongoDB() // MongoDB connection, collections and indexes
	initRedis()            // Optional Redis for the mirror and snapshot tiers
}

func initColNames() {
	global.MongoDB_ColNames.Reports = global.MongoDB_ServerConfig.MongoDB_ReportColl
	global.MongoDB_ColNames.ReportDirtyPeriods = "report_dirty_periods"

	logrus.Info("Initialized collection names")
}

func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

func initConfig() {
	global.MongoDB_ServerConfig = config.NewConfig()
	if global.MongoDB_ServerConfig == nil {
		logrus.Fatalf("Failed to initialize config: config is nil")
	}
	logrus.Info("Initialized server config")
}

func initDatabase_MongoDB() {
	var err error
	global.MongoDB_Session, err = database.GetInstance(global.MongoDB_ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to get database instance: %v", err)
	}
	logrus.Info("Connected to MongoDB")

	dbName := global.MongoDB_ServerConfig.MongoDB_DBName_Data
	names := []string{global.MongoDB_ColNames.Reports, global.MongoDB_ColNames.ReportDirtyPeriods}
	if err := database.EnsureCollections(global.MongoDB_Session, dbName, names); err != nil {
		logrus.Fatalf("Failed to ensure collections: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db := global.MongoDB_Session.Database(dbName)
	if err := database.CreateIndexes(ctx, db.Collection(global.MongoDB_ColNames.Reports), reportmodels.Report{}); err != nil {
		logrus.Errorf("Failed to create report indexes: %v", err)
	}
	if err := database.CreateIndexes(ctx, db.Collection(global.MongoDB_ColNames.ReportDirtyPeriods), reportmodels.ReportDirtyPeriod{}); err != nil {
		logrus.Errorf("Failed to create dirty period indexes: %v", err)
	}
	// A pre-existing duplicate slot makes the unique index fail. Reads still
	// work and duplicates are resolved latest-wins.
	if err := database.CreateReportAdditionalIndexes(ctx, db); err != nil {
		logrus.Warnf("Failed to create additional report indexes: %v", err)
	}
}

func initRedis() {
	client, err := database.NewRedisClient(global.MongoDB_ServerConfig)
	if err != nil {
		logrus.Warnf("Redis unavailable, continuing without mirror and snapshot tiers: %v", err)
		return
	}
	global.Redis_Client = client
}
