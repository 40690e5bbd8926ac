package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// Result is what the executor hands back to the CLI driver: either a
// single scalar row (COUNT(*)) or the decoded rows in scan order;
// ResultFormatter turns them into output text.
type Result struct {
	Columns []string
	Rows    [][]Value
}

// planKind distinguishes the three SELECT shapes this engine supports.
type planKind int

const (
	planSelectStar planKind = iota
	planSelectColumns
	planCount
)

// plan is the narrow SELECT plan this engine supports: one table, an
// optional single equality filter, and either `*`, an explicit column
// list, or `COUNT(*)`.
type plan struct {
	kind       planKind
	table      *TableInfo
	projection []int // source column indices, in output order
	columns    []string
	filter     *filterSpec
}

// Execute parses nothing itself; it consumes the AST xwb1989/sqlparser
// already produced and drives a single table-scan over it.
func Execute(ctx context.Context, pager Pager, cfg *FileConfig, stmt *sqlparser.Select) (*Result, error) {
	p, err := buildPlan(ctx, pager, cfg, stmt)
	if err != nil {
		return nil, err
	}
	return runPlan(ctx, pager, cfg, p)
}

func buildPlan(ctx context.Context, pager Pager, cfg *FileConfig, stmt *sqlparser.Select) (*plan, error) {
	tableName, err := tableNameOf(stmt)
	if err != nil {
		return nil, err
	}

	info, err := resolveTable(ctx, pager, cfg, tableName)
	if err != nil {
		return nil, err
	}

	filter, err := buildFilter(stmt.Where, info)
	if err != nil {
		return nil, err
	}

	if isCountStar(stmt.SelectExprs) {
		return &plan{kind: planCount, table: info, filter: filter}, nil
	}

	if isStar(stmt.SelectExprs) {
		projection := make([]int, len(info.Columns))
		for i := range info.Columns {
			projection[i] = i
		}
		return &plan{kind: planSelectStar, table: info, projection: projection, columns: info.Columns, filter: filter}, nil
	}

	names, err := columnNamesOf(stmt.SelectExprs)
	if err != nil {
		return nil, err
	}
	projection := make([]int, len(names))
	for i, name := range names {
		idx := columnIndex(info.Columns, name)
		if idx == -1 {
			return nil, NewDatabaseError("build_plan", fmt.Errorf("%w: '%s'", ErrUnknownColumn, name), map[string]interface{}{"table": tableName})
		}
		projection[i] = idx
	}
	return &plan{kind: planSelectColumns, table: info, projection: projection, columns: names, filter: filter}, nil
}

func runPlan(ctx context.Context, pager Pager, cfg *FileConfig, p *plan) (*Result, error) {
	if p.kind == planCount {
		var count int64
		err := scanTable(ctx, pager, cfg, p.table.RootPage, p.table.IntPKColumn, nil, p.filter, func(ScannedRow) bool {
			count++
			return true
		})
		if err != nil {
			return nil, err
		}
		return &Result{Rows: [][]Value{{IntValue(count)}}}, nil
	}

	var rows [][]Value
	err := scanTable(ctx, pager, cfg, p.table.RootPage, p.table.IntPKColumn, p.projection, p.filter, func(r ScannedRow) bool {
		rows = append(rows, r.Values)
		return true
	})
	if err != nil {
		return nil, err
	}
	return &Result{Columns: p.columns, Rows: rows}, nil
}

func tableNameOf(stmt *sqlparser.Select) (string, error) {
	if len(stmt.From) != 1 {
		return "", NewDatabaseError("build_plan", fmt.Errorf("%w: only a single table in FROM is supported", ErrUnsupported), nil)
	}
	aliased, ok := stmt.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", NewDatabaseError("build_plan", fmt.Errorf("%w: unsupported FROM expression %T", ErrUnsupported, stmt.From[0]), nil)
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", NewDatabaseError("build_plan", fmt.Errorf("%w: unsupported table expression %T", ErrUnsupported, aliased.Expr), nil)
	}
	return tableName.Name.String(), nil
}

func isStar(exprs sqlparser.SelectExprs) bool {
	if len(exprs) != 1 {
		return false
	}
	_, ok := exprs[0].(*sqlparser.StarExpr)
	return ok
}

func isCountStar(exprs sqlparser.SelectExprs) bool {
	if len(exprs) != 1 {
		return false
	}
	aliased, ok := exprs[0].(*sqlparser.AliasedExpr)
	if !ok {
		return false
	}
	fn, ok := aliased.Expr.(*sqlparser.FuncExpr)
	if !ok || !strings.EqualFold(fn.Name.String(), "count") {
		return false
	}
	if len(fn.Exprs) != 1 {
		return false
	}
	_, ok = fn.Exprs[0].(*sqlparser.StarExpr)
	return ok
}

func columnNamesOf(exprs sqlparser.SelectExprs) ([]string, error) {
	names := make([]string, 0, len(exprs))
	for _, expr := range exprs {
		aliased, ok := expr.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, NewDatabaseError("build_plan", fmt.Errorf("%w: unsupported select expression %T", ErrUnsupported, expr), nil)
		}
		col, ok := aliased.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, NewDatabaseError("build_plan", fmt.Errorf("%w: unsupported select expression %T", ErrUnsupported, aliased.Expr), nil)
		}
		names = append(names, col.Name.String())
	}
	return names, nil
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// buildFilter supports exactly one shape of WHERE clause: a single
// `column = 'literal'` equality, string literal only. Anything richer
// (AND/OR, other operators, numeric literals) is Unsupported rather
// than silently ignored.
func buildFilter(where *sqlparser.Where, info *TableInfo) (*filterSpec, error) {
	if where == nil {
		return nil, nil
	}
	cmp, ok := where.Expr.(*sqlparser.ComparisonExpr)
	if !ok || cmp.Operator != sqlparser.EqualStr {
		return nil, NewDatabaseError("build_plan", fmt.Errorf("%w: only a single column = 'literal' WHERE clause is supported", ErrUnsupported), nil)
	}
	col, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return nil, NewDatabaseError("build_plan", fmt.Errorf("%w: WHERE left side must be a column", ErrUnsupported), nil)
	}
	val, ok := cmp.Right.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.StrVal {
		return nil, NewDatabaseError("build_plan", fmt.Errorf("%w: WHERE right side must be a string literal", ErrUnsupported), nil)
	}

	idx := columnIndex(info.Columns, col.Name.String())
	if idx == -1 {
		return nil, NewDatabaseError("build_plan", fmt.Errorf("%w: '%s'", ErrUnknownColumn, col.Name.String()), nil)
	}
	return &filterSpec{ColumnIndex: idx, Literal: string(val.Val)}, nil
}
