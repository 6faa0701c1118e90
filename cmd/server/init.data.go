package main

import (
	"optometry_report/config"
	"optometry_report/internal/canon"
	"optometry_report/internal/global"
	"optometry_report/internal/logger"
)

// InitAliasTable loads the institution alias table and builds the shared
// name resolver. A missing file leaves only exact-name matching.
func InitAliasTable() {
	log := logger.GetAppLogger()
	cfg := global.MongoDB_ServerConfig

	path := config.ResolvePath(cfg.AliasTableFile)
	table, err := canon.LoadAliasTable(path)
	if err != nil {
		log.WithError(err).Warn("⚠️ [INIT] Alias table not loaded, institution names match exactly only")
		table = canon.AliasTable{}
	}

	c, err := canon.New(table, canon.WithCoordinatorPrefixes(cfg.CoordinatorPrefixList()...))
	if err != nil {
		log.Fatalf("Invalid alias table %s: %v", path, err)
	}
	global.Canonicalizer = c
	log.WithField("institutions", len(table)).Info("✅ [INIT] Alias table loaded")
}
