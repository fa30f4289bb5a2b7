package store

import (
	"context"
	"time"
)

// Store is the main interface for the ingredient dataset and scan history.
type Store interface {
	Close() error

	// Dataset (read-only for the analysis pipeline)
	CountDataset(ctx context.Context) (int64, error)
	FindByName(ctx context.Context, name string) (DatasetRow, bool, error)
	FindAliasCandidates(ctx context.Context, token string) ([]DatasetRow, error)

	// Dataset import
	UpsertDatasetRows(ctx context.Context, rows []DatasetRow) (int, error)

	// Scan history
	SaveScan(ctx context.Context, s Scan) error
	GetScan(ctx context.Context, id string) (Scan, bool, error)
	ListScans(ctx context.Context, userID string, limit int) ([]Scan, error)
}

// DatasetRow is one curated ingredient from the external dataset.
// Aliases is a comma-separated list of exact alternate names.
type DatasetRow struct {
	ID             int64
	IngredientName string
	RiskLevel      string // LOW, MEDIUM, HIGH
	Reason         string
	Aliases        string
	UpdatedAt      time.Time
}

// Scan is a persisted analysis verdict.
type Scan struct {
	ID              string
	UserID          string
	Source          string
	RawText         string
	OverallRisk     string // persistence vocabulary: safe, risky, restricted
	SafeCount       int
	RiskyCount      int
	RestrictedCount int
	UnknownCount    int
	CreatedAt       time.Time
	Ingredients     []ScanIngredient
}

// ScanIngredient is one per-ingredient row of a scan.
type ScanIngredient struct {
	Position    int
	Name        string
	Risk        string // persistence vocabulary
	Explanation string
	MatchSource string
}
