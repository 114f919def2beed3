package db

import (
	"estimate-service/internal/domain"
	"log"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&domain.Document{},
		&domain.Section{},
		&domain.Subsection{},
		&domain.Characteristic{},
		&domain.Work{},
		&domain.ProjectNote{},
	)

	if err != nil {
		log.Fatal(err)
	}

	// Chain ids come from their own sequence, not the documents PK.
	err = AppDb.Exec(`CREATE SEQUENCE IF NOT EXISTS document_chain_seq`).Error
	if err != nil {
		log.Fatal(err)
	}

	// AutoMigrate can't express a partial unique index. This is the schema
	// backstop for the single-current-version-per-chain invariant.
	err = AppDb.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_chain_current
		ON documents (chain_id) WHERE is_current
	`).Error
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Database schema migrated successfully")
}
