package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// slowStatement is the duration from which a statement is logged at warn
// level instead of debug.
const slowStatement = 250 * time.Millisecond

var tableRe = regexp.MustCompile(`(?i)\b(?:from|into|update|table(?:\s+if\s+not\s+exists)?)\s+"?(\w+)"?`)

// statementLog writes one record per executed statement.
type statementLog struct {
	logger *slog.Logger
	slow   time.Duration
}

func (l *statementLog) record(ctx context.Context, op, query string, args []driver.NamedValue, start time.Time, err error, extra ...any) {
	elapsed := time.Since(start)
	attrs := []any{
		"op", op,
		"sql", compactSQL(query),
		"args", formatArgs(args),
		"duration_ms", elapsed.Milliseconds(),
	}
	if table := statementTable(query); table != "" {
		attrs = append(attrs, "table", table)
	}
	attrs = append(attrs, extra...)

	level := slog.LevelDebug
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	if elapsed >= l.slow {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "sql", attrs...)
}

// loggingConnector opens sqlite3 connections whose statements are logged.
type loggingConnector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
	log    *statementLog
}

// NewLoggingConnector returns a driver.Connector for sql.OpenDB that logs
// every readings-store statement. A nil logger means slog.Default().
func NewLoggingConnector(dsn string, logger *slog.Logger) (driver.Connector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{
		dsn:    dsn,
		driver: &sqlite3.SQLiteDriver{},
		log:    &statementLog{logger: logger, slow: slowStatement},
	}, nil
}

func (c *loggingConnector) Driver() driver.Driver { return c.driver }

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		c.log.logger.WarnContext(ctx, "sqlite open failed", "error", err)
		return nil, err
	}
	return &loggingConn{Conn: conn, log: c.log}, nil
}

// loggingConn logs prepared statements and direct execs alike.
type loggingConn struct {
	driver.Conn
	log *statementLog
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if p, ok := c.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = p.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		c.log.record(ctx, "prepare", query, nil, time.Now(), err)
		return nil, err
	}
	return &loggingStmt{Stmt: stmt, query: query, log: c.log}, nil
}

// ExecContext runs unprepared statements on the connection, which executes
// every statement of a multi-statement migration script.
func (c *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	e, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := e.ExecContext(ctx, query, args)
	if errors.Is(err, driver.ErrSkip) {
		return nil, err
	}
	c.log.record(ctx, "exec", query, args, start, err, affected(res, err)...)
	return res, err
}

func (c *loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	q, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	rows, err := q.QueryContext(ctx, query, args)
	if errors.Is(err, driver.ErrSkip) {
		return nil, err
	}
	c.log.record(ctx, "query", query, args, start, err)
	return rows, err
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if b, ok := c.Conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019: only reached for drivers without BeginTx
	return c.Conn.Begin()
}

type loggingStmt struct {
	driver.Stmt
	query string
	log   *statementLog
}

func (s *loggingStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), named(args))
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var (
		res driver.Result
		err error
	)
	if e, ok := s.Stmt.(driver.StmtExecContext); ok {
		res, err = e.ExecContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019: only reached for drivers without ExecContext
		res, err = s.Stmt.Exec(unnamed(args))
	}
	s.log.record(ctx, "exec", s.query, args, start, err, affected(res, err)...)
	return res, err
}

func affected(res driver.Result, err error) []any {
	if err != nil || res == nil {
		return nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	return []any{"rows_affected", n}
}

func (s *loggingStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), named(args))
}

// QueryContext logs the time to the first row only; iteration is not timed.
func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var (
		rows driver.Rows
		err  error
	)
	if q, ok := s.Stmt.(driver.StmtQueryContext); ok {
		rows, err = q.QueryContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019: only reached for drivers without QueryContext
		rows, err = s.Stmt.Query(unnamed(args))
	}
	s.log.record(ctx, "query", s.query, args, start, err)
	return rows, err
}

// compactSQL folds the embedded multi-line queries onto one line.
func compactSQL(query string) string {
	return strings.TrimSuffix(strings.Join(strings.Fields(query), " "), ";")
}

// statementTable returns the first table a statement names, lower-cased.
func statementTable(query string) string {
	m := tableRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func named(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}

func unnamed(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

func formatArgs(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		v := formatArg(a.Value)
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		out[i] = v
	}
	return out
}

func formatArg(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
