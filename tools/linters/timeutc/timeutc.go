// Package timeutc provides a linter for wall-clock reads that bypass UTC.
//
// Stored instants (approval cells, audit events, snapshots) are UTC, and calendar days
// are computed in the configured ATELIER_TIMEZONE. Two patterns break that:
//
//	time.Now()      // reads the host zone; use time.Now().UTC() or the injected clock
//	time.Local      // the host zone; use the configured *time.Location
//
// Findings can be suppressed with //nolint or //nolint:timeutc on the same or previous line.
package timeutc

import (
	"go/ast"
	"go/token"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports time.Now() calls without .UTC() and references to time.Local.
var Analyzer = &analysis.Analyzer{
	Name: "timeutc",
	Doc:  "checks that wall-clock reads are UTC and never use the host time zone",
	Run:  run,
}

const (
	msgNow   = "time.Now() should be followed by .UTC() for timezone consistency"
	msgLocal = "time.Local depends on the host; use the configured location"
)

func run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		suppressed := nolintLines(pass.Fset, file)

		// Calls of the form time.Now().UTC(), collected before reporting bare time.Now().
		withUTC := make(map[*ast.CallExpr]bool)
		ast.Inspect(file, func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectorExpr); ok && sel.Sel.Name == "UTC" {
				if call, ok := sel.X.(*ast.CallExpr); ok && isTimeSelector(call.Fun, "Now") {
					withUTC[call] = true
				}
			}
			return true
		})

		report := func(pos token.Pos, msg string) {
			if !suppressed[pass.Fset.Position(pos).Line] {
				pass.Reportf(pos, "%s", msg)
			}
		}

		ast.Inspect(file, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.CallExpr:
				if isTimeSelector(n.Fun, "Now") && !withUTC[n] {
					report(n.Pos(), msgNow)
				}
			case *ast.SelectorExpr:
				if isTimeSelector(n, "Local") {
					report(n.Pos(), msgLocal)
				}
			}
			return true
		})
	}

	return nil, nil
}

// isTimeSelector reports whether expr is time.<name>.
func isTimeSelector(expr ast.Expr, name string) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	return ok && ident.Name == "time"
}

// nolintLines returns the lines covered by a //nolint or //nolint:timeutc comment:
// the comment's own line and the one after it.
func nolintLines(fset *token.FileSet, file *ast.File) map[int]bool {
	lines := make(map[int]bool)
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
			directive, _, _ := strings.Cut(text, " ")
			linters, scoped := strings.CutPrefix(directive, "nolint:")
			if directive != "nolint" && !(scoped && containsLinter(linters, "timeutc")) {
				continue
			}
			line := fset.Position(c.Pos()).Line
			lines[line] = true
			lines[line+1] = true
		}
	}
	return lines
}

func containsLinter(list, name string) bool {
	for l := range strings.SplitSeq(list, ",") {
		if strings.TrimSpace(l) == name {
			return true
		}
	}
	return false
}
