// Package enumvalidator reports string literals written into fields whose
// type is one of the project's string enums, e.g. Delivery.Status = "done"
// where model.DeliveryStatusSucceeded was meant.
package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

const defaultEnumTypes = "Provider,IssueState,DeliveryStatus,TaskType,AssigneePolicy,Outcome"

var Analyzer = &analysis.Analyzer{
	Name: "enumvalidator",
	Doc:  "checks that enum fields only use defined constants, not string literals",
	Run:  run,
}

var enumTypesFlag string

func init() {
	Analyzer.Flags.StringVar(&enumTypesFlag, "types", defaultEnumTypes, "comma separated enum type names to check")
}

func run(pass *analysis.Pass) (interface{}, error) {
	enumTypes := parseTypes(enumTypesFlag)

	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.AssignStmt:
				checkAssign(pass, node, enumTypes)
			case *ast.CompositeLit:
				checkCompositeLit(pass, node, enumTypes)
			}
			return true
		})
	}
	return nil, nil
}

func checkAssign(pass *analysis.Pass, assign *ast.AssignStmt, enumTypes map[string]bool) {
	for i, lhs := range assign.Lhs {
		if i >= len(assign.Rhs) {
			continue
		}
		sel, ok := lhs.(*ast.SelectorExpr)
		if !ok || !isStringLiteral(assign.Rhs[i]) {
			continue
		}
		if name, ok := enumName(pass.TypesInfo.TypeOf(sel), enumTypes); ok {
			pass.Reportf(assign.Pos(),
				"enum field %s assigned string literal; use a %s constant instead",
				sel.Sel.Name, name)
		}
	}
}

func checkCompositeLit(pass *analysis.Pass, lit *ast.CompositeLit, enumTypes map[string]bool) {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok || !isStringLiteral(kv.Value) {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok {
			continue
		}
		field, ok := pass.TypesInfo.ObjectOf(key).(*types.Var)
		if !ok || !field.IsField() {
			continue
		}
		if name, ok := enumName(field.Type(), enumTypes); ok {
			pass.Reportf(kv.Pos(),
				"enum field %s set to string literal; use a %s constant instead",
				key.Name, name)
		}
	}
}

func enumName(t types.Type, enumTypes map[string]bool) (string, bool) {
	if t == nil {
		return "", false
	}
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return "", false
	}
	name := named.Obj().Name()
	return name, enumTypes[name]
}

func isStringLiteral(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}

func parseTypes(s string) map[string]bool {
	names := make(map[string]bool)
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names[name] = true
		}
	}
	return names
}
