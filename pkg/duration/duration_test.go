package duration_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeDefaults(t *testing.T) {
	assert.Greater(t, duration.ProbeSettle, duration.ProbeInterval)
	assert.LessOrEqual(t, duration.ProbeSettle, duration.ProbeSettleMax)
	assert.Greater(t, duration.ProbeRestore, duration.ProbeSettle)
}

// TestNoHardcodedDurations ensures *Timeout, *Delay and *Interval fields
// are assigned from duration.* constants instead of literal expressions.
func TestNoHardcodedDurations(t *testing.T) {
	root := findProjectRoot(t)
	var violations []string

	for _, dir := range []string{"pkg", "cmd"} {
		dirPath := filepath.Join(root, dir)
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			continue
		}
		err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if !strings.HasSuffix(path, ".go") ||
				strings.HasSuffix(path, "_test.go") ||
				strings.HasSuffix(path, "duration.go") {
				return nil
			}
			violations = append(violations, scanFile(t, root, path)...)
			return nil
		})
		require.NoError(t, err)
	}

	for _, v := range violations {
		t.Errorf("hardcoded duration, use duration.*: %s", v)
	}
}

func scanFile(t *testing.T, root, path string) []string {
	t.Helper()

	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil
	}

	var out []string
	report := func(field string, expr ast.Expr) {
		if !guardedField(field) || !isHardcodedDuration(expr) {
			return
		}
		pos := fset.Position(expr.Pos())
		rel, _ := filepath.Rel(root, pos.Filename)
		out = append(out, rel+":"+strconv.Itoa(pos.Line)+": "+field)
	}

	ast.Inspect(node, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.KeyValueExpr:
			if ident, ok := x.Key.(*ast.Ident); ok {
				report(ident.Name, x.Value)
			}
		case *ast.AssignStmt:
			for i, lhs := range x.Lhs {
				if sel, ok := lhs.(*ast.SelectorExpr); ok && i < len(x.Rhs) {
					report(sel.Sel.Name, x.Rhs[i])
				}
			}
		}
		return true
	})
	return out
}

func guardedField(name string) bool {
	for _, suffix := range []string{"Timeout", "Delay", "Interval"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// isHardcodedDuration matches "N * time.Unit".
func isHardcodedDuration(expr ast.Expr) bool {
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	if _, ok := bin.X.(*ast.BasicLit); !ok {
		return false
	}
	sel, ok := bin.Y.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok || ident.Name != "time" {
		return false
	}
	switch sel.Sel.Name {
	case "Second", "Minute", "Hour", "Millisecond", "Microsecond", "Nanosecond":
		return true
	}
	return false
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find project root (go.mod)")
		}
		dir = parent
	}
}
