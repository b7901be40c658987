package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "clipay"

// layerPolicy lists what a layer of a bounded-context service may import
// besides the standard library. Local entries are relative to the service,
// shared entries to the module root.
type layerPolicy struct {
	local      []string
	shared     []string
	thirdParty []string
}

var layerPolicies = map[string]layerPolicy{
	"domain": {
		local:      []string{"domain"},
		thirdParty: []string{"github.com/shopspring/decimal"},
	},
	"ports": {
		local:      []string{"domain", "ports"},
		shared:     []string{"contracts"},
		thirdParty: []string{"github.com/shopspring/decimal"},
	},
	"application": {
		local:  []string{"application", "domain", "ports"},
		shared: []string{"contracts"},
		thirdParty: []string{
			"github.com/shopspring/decimal",
			"go.opentelemetry.io/otel",
			"golang.org/x/sync",
			"golang.org/x/time",
		},
	},
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations, err := collectViolations(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "boundary check failed: %v\n", err)
		os.Exit(2)
	}
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations checks every non-test file under repoRoot/contexts and
// reports paths relative to repoRoot, sorted by file and line.
func collectViolations(repoRoot string) ([]violation, error) {
	var violations []violation
	contextsDir := filepath.Join(repoRoot, "contexts")

	err := filepath.WalkDir(contextsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(repoRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		// contexts/<area>/<service>/<layer>/...
		parts := strings.Split(rel, "/")
		if len(parts) < 4 {
			return nil
		}
		servicePrefix := strings.Join(append([]string{modulePath}, parts[:3]...), "/")
		violations = append(violations, checkFile(path, rel, parts[3], servicePrefix)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})
	return violations, nil
}

func checkFile(path string, rel string, layer string, servicePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: rel, Line: 1, Rule: "file must parse"}}
	}

	policy, governed := layerPolicies[layer]
	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		line := fset.Position(imp.Pos()).Line
		if rule := importRule(importPath, layer, servicePrefix, policy, governed); rule != "" {
			violations = append(violations, violation{File: rel, Line: line, Import: importPath, Rule: rule})
		}
	}
	return violations
}

// importRule names the broken rule, or returns "" when the import is allowed.
func importRule(importPath string, layer string, servicePrefix string, policy layerPolicy, governed bool) string {
	if strings.HasPrefix(importPath, modulePath+"/contexts/") && !within(importPath, servicePrefix) {
		return "cross-module imports are forbidden"
	}
	if !governed || isStdlib(importPath) {
		return ""
	}
	switch {
	case strings.HasPrefix(importPath, servicePrefix+"/adapters"):
		return layer + " must not import adapters"
	case strings.HasPrefix(importPath, modulePath+"/internal/"):
		return layer + " must not import runtime infrastructure"
	}

	allowed := make([]string, 0, len(policy.local)+len(policy.shared)+len(policy.thirdParty))
	for _, item := range policy.local {
		allowed = append(allowed, servicePrefix+"/"+item)
	}
	for _, item := range policy.shared {
		allowed = append(allowed, modulePath+"/"+item)
	}
	allowed = append(allowed, policy.thirdParty...)
	for _, prefix := range allowed {
		if within(importPath, prefix) {
			return ""
		}
	}
	return layer + " import is outside explicit allowlist"
}

func within(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if within(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
