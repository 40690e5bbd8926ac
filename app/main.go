package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/xwb1989/sqlparser"
)

// Usage: litescan <path-to-db> <command>
// command is either a dot-command (.dbinfo, .tables) or a SQL statement.
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("litescan", flag.ContinueOnError)
	debug := fs.Bool("debug", false, "dump the parsed statement and the query result with go-spew")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("usage: litescan <path-to-db> <command>")
	}
	dbPath, command := rest[0], rest[1]

	rm := NewResourceManager()
	defer rm.Close()

	file, err := os.Open(dbPath)
	if err != nil {
		return NewDatabaseError("open_database", fmt.Errorf("%w: %v", ErrIo, err), map[string]interface{}{"path": dbPath})
	}
	rm.Add(file)

	fileCfg, err := ReadFileConfig(file)
	if err != nil {
		return err
	}

	pager := NewFilePager(file, nil, fileCfg.PageSize, DefaultDatabaseConfig())
	rm.Add(pager)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case command == ".dbinfo":
		return runDBInfo(ctx, pager, fileCfg)
	case command == ".tables":
		return runTables(ctx, pager, fileCfg)
	default:
		return runSQL(ctx, pager, fileCfg, command, *debug)
	}
}

func runDBInfo(ctx context.Context, pager Pager, cfg *FileConfig) error {
	page, err := pager.ReadPage(ctx, schemaRootPage)
	if err != nil {
		return err
	}
	header, _, err := decodePageHeader(page, true)
	if err != nil {
		return err
	}
	fmt.Printf("database page size: %v\n", cfg.PageSize)
	fmt.Printf("number of tables: %v\n", header.CellCount)
	return nil
}

func runTables(ctx context.Context, pager Pager, cfg *FileConfig) error {
	names, err := listUserTables(ctx, pager, cfg)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(names, " "))
	return nil
}

func runSQL(ctx context.Context, pager Pager, cfg *FileConfig, sql string, debug bool) error {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return NewDatabaseError("parse_sql", fmt.Errorf("%w: %v", ErrMalformed, err), map[string]interface{}{"sql": sql})
	}

	if debug {
		spew.Fdump(os.Stderr, stmt)
	}

	selectStmt, ok := stmt.(*sqlparser.Select)
	if !ok {
		return NewDatabaseError("run_sql", fmt.Errorf("%w: only SELECT statements are supported, got %T", ErrUnsupported, stmt), nil)
	}

	result, err := Execute(ctx, pager, cfg, selectStmt)
	if err != nil {
		return err
	}

	if debug {
		spew.Fdump(os.Stderr, result)
	}

	return NewResultFormatter(os.Stdout).Write(result)
}
