package global

import (
	"optometry_report/config"
	"optometry_report/internal/canon"
	"optometry_report/internal/registry"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName holds the MongoDB collection names.
type MongoDB_CollectionName struct {
	Reports            string // Monthly institution reports
	ReportDirtyPeriods string // Fiscal years whose stored snapshots must be rebuilt
}

var Validate *validator.Validate                                           // Request validator
var MongoDB_Session *mongo.Client                                          // MongoDB client
var MongoDB_ServerConfig *config.Configuration                             // Server configuration
var MongoDB_ColNames MongoDB_CollectionName = *new(MongoDB_CollectionName) // Collection names
var Redis_Client *redis.Client                                             // nil when REDIS_ADDR is empty
var Canonicalizer *canon.Canonicalizer                                     // Institution name resolver

// Registries
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Collections by name
