// Copyright 2024 The ordsync Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package checkorder flags constant memory ordering annotations that the
// annotated operation rejects, turning the runtime panic into a build-time
// diagnostic.
package checkorder

import (
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"
	"ordsync.dev/ordsync/pkg/memorder"
)

// Analyzer defines the entrypoint.
var Analyzer = &analysis.Analyzer{
	Name: "checkorder",
	Doc:  "flags memory ordering annotations rejected by the annotated operation",
	Run:  run,
}

// orderArg locates one ordering argument of an order-annotated method.
type orderArg struct {
	index int
	op    memorder.Op
}

// methods maps order-annotated methods to the operation class of each of
// their ordering arguments. Method names are matched without resolving the
// receiver: an argument only counts as an ordering when it selects a
// memorder constant, so unrelated methods that happen to share a name are
// never reported.
var methods = map[string][]orderArg{
	"Test":            {{0, memorder.OpLoad}},
	"Load":            {{0, memorder.OpLoad}},
	"Clear":           {{0, memorder.OpStore}},
	"Store":           {{1, memorder.OpStore}},
	"TestAndSet":      {{0, memorder.OpRMW}},
	"TestAndClear":    {{0, memorder.OpRMW}},
	"Swap":            {{1, memorder.OpRMW}},
	"CompareExchange": {{2, memorder.OpRMW}, {3, memorder.OpCmpxchgFailure}},
}

// orders maps the exported constant names of memorder to their values, so
// that admissibility is decided by the same tables the runtime checks use.
var orders = map[string]memorder.Order{
	"SeqCst":  memorder.SeqCst,
	"AcqRel":  memorder.AcqRel,
	"Acquire": memorder.Acquire,
	"Release": memorder.Release,
	"Relaxed": memorder.Relaxed,
}

func run(pass *analysis.Pass) (any, error) {
	// memorder implements the admissibility rules themselves.
	if pass.Pkg.Name() == "memorder" {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Tests exercise rejected orderings on purpose.
		if strings.HasSuffix(pass.Fset.File(file.Pos()).Name(), "_test.go") {
			continue
		}
		ast.Inspect(file, func(node ast.Node) bool {
			call, ok := node.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			args, ok := methods[sel.Sel.Name]
			if !ok {
				return true
			}

			for _, oa := range args {
				o, ok := constOrder(call, oa.index)
				if !ok {
					continue
				}
				if !o.ValidFor(oa.op) {
					pass.Reportf(call.Args[oa.index].Pos(), "memorder.%s is not a valid %s ordering; this call panics at runtime", o, oa.op)
				}
			}

			// A constant failure ordering must also not be stronger than a
			// constant success ordering.
			if sel.Sel.Name == "CompareExchange" {
				success, okS := constOrder(call, 2)
				failure, okF := constOrder(call, 3)
				if okS && okF && failure.StrongerThan(success) {
					pass.Reportf(call.Args[3].Pos(), "compare-exchange failure ordering memorder.%s is stronger than success ordering memorder.%s; this call panics at runtime", failure, success)
				}
			}

			return true
		})
	}

	return nil, nil
}

// constOrder returns the ordering named by the call argument at index if the
// argument selects a constant of the memorder package.
//
// Please don't trick this checker by renaming the memorder import.
func constOrder(call *ast.CallExpr, index int) (memorder.Order, bool) {
	if index >= len(call.Args) {
		return 0, false
	}
	sel, ok := call.Args[index].(*ast.SelectorExpr)
	if !ok {
		return 0, false
	}
	pkgIdent, ok := sel.X.(*ast.Ident)
	if !ok || pkgIdent.Obj != nil || pkgIdent.Name != "memorder" {
		return 0, false
	}
	o, ok := orders[sel.Sel.Name]
	return o, ok
}
