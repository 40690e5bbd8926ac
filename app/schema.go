package main

import (
	"context"
	"fmt"
	"strings"
)

// schemaRootPage is where sqlite_schema always lives.
const schemaRootPage = 1

// schemaColType, schemaColName, schemaColTblName, schemaColRootpage,
// schemaColSQL are the fixed column indices of sqlite_schema.
const (
	schemaColType = iota
	schemaColName
	schemaColTblName
	schemaColRootpage
	schemaColSQL
	schemaColumnCount
)

// schemaRow is one decoded row of sqlite_schema.
type schemaRow struct {
	Type     string
	Name     string
	TblName  string
	RootPage int64
	SQL      string
}

// TableInfo is what the executor needs to scan a user table: its root
// page and, if it declares one, the column index aliased to the row id.
type TableInfo struct {
	RootPage    int
	IntPKColumn int // -1 if the table has no integer-primary-key alias
	Columns     []string
}

var syntheticSchemaNames = map[string]bool{
	"sqlite_schema":      true,
	"sqlite_master":      true,
	"sqlite_temp_schema": true,
	"sqlite_temp_master": true,
}

const syntheticSchemaSQL = "CREATE TABLE sqlite_schema(type text, name text, tbl_name text, rootpage integer, sql text)"

// allSchemaRows scans sqlite_schema (page 1) and decodes every row.
func allSchemaRows(ctx context.Context, pager Pager, cfg *FileConfig) ([]schemaRow, error) {
	projection := []int{schemaColType, schemaColName, schemaColTblName, schemaColRootpage, schemaColSQL}

	var rows []schemaRow
	err := scanTable(ctx, pager, cfg, schemaRootPage, -1, projection, nil, func(r ScannedRow) bool {
		rows = append(rows, schemaRow{
			Type:     r.Values[schemaColType].String(),
			Name:     r.Values[schemaColName].String(),
			TblName:  r.Values[schemaColTblName].String(),
			RootPage: r.Values[schemaColRootpage].Int,
			SQL:      r.Values[schemaColSQL].String(),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// resolveTable resolves a table name to its root page, column list, and
// integer-primary-key alias column.
func resolveTable(ctx context.Context, pager Pager, cfg *FileConfig, name string) (*TableInfo, error) {
	lower := strings.ToLower(name)
	if syntheticSchemaNames[lower] {
		cols, err := parseCreateTableColumns(syntheticSchemaSQL)
		if err != nil {
			return nil, err
		}
		return &TableInfo{RootPage: schemaRootPage, IntPKColumn: -1, Columns: colNames(cols)}, nil
	}

	rows, err := allSchemaRows(ctx, pager, cfg)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.Type != "table" {
			continue
		}
		if !strings.EqualFold(row.TblName, name) {
			continue
		}
		cols, err := parseCreateTableColumns(row.SQL)
		if err != nil {
			return nil, err
		}
		return &TableInfo{
			RootPage:    int(row.RootPage),
			IntPKColumn: intPKColumnIndex(cols),
			Columns:     colNames(cols),
		}, nil
	}

	return nil, NewDatabaseError("resolve_table", fmt.Errorf("%w: '%s'", ErrUnknownTable, name), nil)
}

// listUserTables returns the tbl_names of every non-internal table, for
// the .tables dot-command.
func listUserTables(ctx context.Context, pager Pager, cfg *FileConfig) ([]string, error) {
	rows, err := allSchemaRows(ctx, pager, cfg)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, row := range rows {
		if row.Type != "table" {
			continue
		}
		if strings.HasPrefix(row.TblName, "sqlite_") {
			continue
		}
		names = append(names, row.TblName)
	}
	return names, nil
}

type columnDef struct {
	Name string
	Type string
}

func colNames(cols []columnDef) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// parseCreateTableColumns extracts a CREATE TABLE statement's column
// names and full declared-type text (everything between the name and
// the next comma or closing paren, e.g. "integer primary key
// autoincrement"). sqlparser's DDL grammar files primary-key/autoincrement
// markers as separate column-option fields rather than leaving them in
// the type string, which would make intPKColumnIndex's loose textual
// rule unobservable; a column declaration is simple enough (name
// followed by a run of bare words) that a small dedicated tokenizer,
// over sqlparser's own DDL parsing, is what actually exposes the text
// the rule needs.
func parseCreateTableColumns(createSQL string) ([]columnDef, error) {
	open := strings.IndexByte(createSQL, '(')
	closeParen := strings.LastIndexByte(createSQL, ')')
	if open == -1 || closeParen == -1 || closeParen < open {
		return nil, NewDatabaseError("parse_create_table", fmt.Errorf("%w: not a CREATE TABLE statement", ErrMalformed), map[string]interface{}{"sql": createSQL})
	}

	var cols []columnDef
	for _, fragment := range splitTopLevelCommas(createSQL[open+1 : closeParen]) {
		fields := strings.Fields(fragment)
		if len(fields) == 0 || isTableConstraintKeyword(fields[0]) {
			continue
		}
		name := strings.Trim(fields[0], `"`+"`"+`[]`)
		typeText := strings.Join(fields[1:], " ")
		cols = append(cols, columnDef{Name: name, Type: typeText})
	}
	if len(cols) == 0 {
		return nil, NewDatabaseError("parse_create_table", fmt.Errorf("%w: no columns found", ErrMalformed), nil)
	}
	return cols, nil
}

// splitTopLevelCommas splits a column-definition list on commas that
// are not nested inside parentheses (e.g. a CHECK(...) expression).
func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

var tableConstraintKeywords = map[string]bool{
	"primary":    true,
	"unique":     true,
	"foreign":    true,
	"check":      true,
	"constraint": true,
}

func isTableConstraintKeyword(firstWord string) bool {
	return tableConstraintKeywords[strings.ToLower(strings.Trim(firstWord, `"`+"`"+`[]`))]
}

// intPKColumnIndex applies the loose integer-primary-key-alias rule: the
// first column whose declared type, lowercased and split on whitespace,
// starts with the three tokens "integer", "primary", "key". Returns -1
// if no column matches.
func intPKColumnIndex(cols []columnDef) int {
	for i, c := range cols {
		tokens := strings.Fields(strings.ToLower(c.Type))
		if len(tokens) >= 3 && tokens[0] == "integer" && tokens[1] == "primary" && tokens[2] == "key" {
			return i
		}
	}
	return -1
}
