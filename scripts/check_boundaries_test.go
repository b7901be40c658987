package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, root string, rel string, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestRepositoryRespectsLayerBoundaries(t *testing.T) {
	violations, err := collectViolations("..")
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestCollectViolationsFlagsLayerBreaks(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "contexts/finance/ledger/domain/services/calc.go", `package services

import (
	"fmt"

	"clipay/contexts/finance/ledger/adapters/memory"
	"clipay/internal/platform/config"
	"github.com/shopspring/decimal"
)
`)
	writeSource(t, root, "contexts/finance/ledger/application/commands/pay.go", `package commands

import (
	"clipay/contexts/finance/ledger/domain/services"
	"clipay/contexts/other/billing/ports"
	"clipay/contracts/gen/events/v1"
	"gorm.io/gorm"
)
`)
	writeSource(t, root, "contexts/finance/ledger/application/commands/pay_test.go", `package commands

import "clipay/contexts/finance/ledger/adapters/memory"
`)
	writeSource(t, root, "contexts/finance/ledger/adapters/postgres/repo.go", `package postgres

import "gorm.io/gorm"
`)

	violations, err := collectViolations(root)
	require.NoError(t, err)

	rules := make(map[string]string, len(violations))
	for _, v := range violations {
		rules[v.Import] = v.Rule
	}
	require.Equal(t, map[string]string{
		"clipay/contexts/finance/ledger/adapters/memory": "domain must not import adapters",
		"clipay/internal/platform/config":                "domain must not import runtime infrastructure",
		"clipay/contexts/other/billing/ports":            "cross-module imports are forbidden",
		"gorm.io/gorm":                                   "application import is outside explicit allowlist",
	}, rules)
	require.Equal(t, "contexts/finance/ledger/application/commands/pay.go", violations[0].File)
}

func TestCollectViolationsReportsUnparsableFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "contexts/finance/ledger/ports/ports.go", "package ports\nimport (\n")

	violations, err := collectViolations(root)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Equal(t, "file must parse", violations[0].Rule)
}
