package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

const ruleSQLInjection = "HUSK-D211"

var dbModules = map[string]struct{}{
	"sqlite3": {}, "psycopg2": {}, "psycopg": {}, "pymysql": {},
	"MySQLdb": {}, "cx_Oracle": {}, "oracledb": {}, "pyodbc": {},
	"sqlalchemy": {}, "asyncpg": {}, "aiosqlite": {}, "databases": {},
	"peewee": {}, "tortoise": {}, "django.db": {},
}

var dbReceiverNames = map[string]struct{}{
	"cursor": {}, "cur": {}, "conn": {}, "connection": {}, "db": {},
	"database": {}, "session": {}, "engine": {}, "tx": {}, "transaction": {},
}

var dbReceiverHints = []string{"cursor", "conn", "session", "engine", "db"}

var dbapiSinkSuffixes = []string{".execute", ".executemany", ".executescript"}

// ScanSQL reports SQL built from tainted or interpolated strings reaching a
// database execution sink.
func ScanSQL(res *parser.ParseResult) []models.Finding {
	w := taint.NewWalker(res.Path, res.Source, taint.SQLSanitizers)
	dbNames := make(map[string]struct{})

	w.OnImport = func(node *sitter.Node) {
		trackProvenance(node, res.Source, dbModules, dbNames)
	}

	likelyDBReceiver := func(call *sitter.Node) bool {
		name := taint.ReceiverName(call, res.Source)
		if name == "" {
			return false
		}
		if _, ok := dbNames[name]; ok {
			return true
		}
		lower := strings.ToLower(name)
		if _, ok := dbReceiverNames[lower]; ok {
			return true
		}
		for _, hint := range dbReceiverHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
		return false
	}

	w.OnCall = func(node *sitter.Node) {
		qn := taint.QualifiedCallName(node, res.Source)

		if qn != "" && hasAnySuffix(qn, dbapiSinkSuffixes) {
			if !likelyDBReceiver(node) {
				return
			}
			query := queryExpression(node, res.Source, "sql", "query", "statement")
			if query == nil {
				return
			}
			if taint.StringBuilt(query, res.Source) || w.IsTainted(query, taint.ClassSQL) {
				w.Report(ruleSQLInjection, models.SeverityCritical,
					"Possible SQL injection: tainted or string-built query.", node)
				return
			}
			if !isStringLiteral(query) && !isParameterized(node, res.Source, query) {
				w.Report(ruleSQLInjection, models.SeverityHigh,
					"Likely unparameterized SQL execution.", node)
			}
			return
		}

		if qn != "" && (strings.HasSuffix(qn, ".read_sql") || strings.HasSuffix(qn, ".read_sql_query")) {
			query := queryExpression(node, res.Source, "sql", "query")
			if query != nil && (taint.StringBuilt(query, res.Source) || w.IsTainted(query, taint.ClassSQL)) {
				w.Report(ruleSQLInjection, models.SeverityCritical,
					"Possible SQL injection in read_sql.", node)
			}
			return
		}

		// Bare .execute on something database-shaped.
		if fn := node.ChildByFieldName("function"); fn != nil && fn.Type() == "attribute" {
			attr := parser.GetNodeText(fn.ChildByFieldName("attribute"), res.Source)
			if attr == "execute" && likelyDBReceiver(node) {
				stmt := queryExpression(node, res.Source, "statement", "sql", "query")
				if stmt != nil && (taint.StringBuilt(stmt, res.Source) || w.IsTainted(stmt, taint.ClassSQL)) {
					w.Report(ruleSQLInjection, models.SeverityCritical,
						"Possible SQL injection: tainted statement passed to execute().", node)
				}
				return
			}
		}

		// sqlalchemy text("...")
		if qn == "text" || strings.HasSuffix(qn, ".text") {
			for _, arg := range positionalArgs(node) {
				if taint.StringBuilt(arg, res.Source) || w.IsTainted(arg, taint.ClassSQL) {
					w.Report(ruleSQLInjection, models.SeverityCritical,
						"Possible SQL injection: tainted string used in sqlalchemy text().", node)
					return
				}
			}
		}
	}

	w.Run(res.Tree.RootNode())
	return w.Findings()
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// queryExpression returns the first positional argument, falling back to a
// recognized query keyword argument.
func queryExpression(call *sitter.Node, source []byte, kwNames ...string) *sitter.Node {
	if args := positionalArgs(call); len(args) > 0 {
		return args[0]
	}
	for _, name := range kwNames {
		if v := keywordArg(call, source, name); v != nil {
			return v
		}
	}
	return nil
}

// isParameterized reports whether the call passes bind parameters separately
// from the query text.
func isParameterized(call *sitter.Node, source []byte, query *sitter.Node) bool {
	if taint.StringBuilt(query, source) {
		return false
	}
	if len(positionalArgs(call)) >= 2 {
		return true
	}
	return keywordArg(call, source, "params") != nil || keywordArg(call, source, "parameters") != nil
}
