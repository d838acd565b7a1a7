package completion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/calebcauthon/sqlee/internal/catalog"
)

// rule owns one grammatical position. Rules are ordered most specific first.
type rule struct {
	name  string
	match func(Context) bool
	build func(catalog.Catalog) []Suggestion
}

var (
	reCreate        = regexp.MustCompile(`(?i)\bCREATE\s+\w*$`)
	reCreateTable   = regexp.MustCompile(`(?i)\bCREATE\s+TABLE\s+\w*$`)
	reColumnDef     = regexp.MustCompile(`(?i)\bCREATE\s+TABLE\s+[\w\s]+\(\s*[\w\s,]*\w+\s+\w*$`)
	reSelect        = regexp.MustCompile(`(?i)\bSELECT\s+\w*$`)
	reSelectStar    = regexp.MustCompile(`(?i)\bSELECT\s+\*\s+\w*$`)
	reSelectList    = regexp.MustCompile(`(?i)\bSELECT\s+([\w\s,]+)\s+\w*$`)
	reFrom          = regexp.MustCompile(`(?i)\bFROM\s+\w*$`)
	reFromTable     = regexp.MustCompile(`(?i)\bFROM\s+\w+\s+\w*$`)
	reCondition     = regexp.MustCompile(`(?i)\b(?:WHERE|AND|OR)\s+\w*$`)
	reComparisonLHS = regexp.MustCompile(`(?i)\b(?:WHERE|AND|OR)\s+[\w.]+\s+\w*$`)
)

// clauseWords end a projection list; a run containing one is past SELECT.
var clauseWords = map[string]bool{
	"FROM": true, "WHERE": true, "GROUP": true, "HAVING": true, "ORDER": true,
	"LIMIT": true, "JOIN": true, "ON": true, "AND": true, "OR": true,
}

var (
	statementKeywords = keywords(Keyword, "SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER")
	ddlObjects        = keywords(Keyword, "TABLE", "DATABASE", "INDEX", "VIEW", "FUNCTION", "TRIGGER", "SCHEMA")
	columnTypes       = keywords(Type,
		"INTEGER", "SERIAL", "BIGINT", "DECIMAL", "NUMERIC", "REAL", "DOUBLE PRECISION", "SMALLINT",
		"VARCHAR", "CHAR", "TEXT", "BOOLEAN", "DATE", "TIME", "TIMESTAMP", "JSON", "JSONB", "UUID")
	aggregates     = keywords(Function, "COUNT", "SUM", "AVG", "MAX", "MIN")
	selectClauses  = keywords(Keyword, "FROM", "WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT")
	fromClauses    = keywords(Keyword, "WHERE", "GROUP BY", "ORDER BY", "LIMIT", "JOIN", "LEFT JOIN", "RIGHT JOIN", "INNER JOIN")
	comparisonOps  = keywords(Operator, "=", ">", "<", ">=", "<=", "<>", "LIKE", "IN", "IS NULL", "IS NOT NULL")
	createTableOpt = keywords(Keyword, "IF NOT EXISTS")
)

var rules = []rule{
	{
		name:  "statement",
		match: func(c Context) bool { return c.Explicit || strings.TrimSpace(c.Before) == "" },
		build: static(statementKeywords),
	},
	{
		name:  "create",
		match: matches(reCreate),
		build: static(ddlObjects),
	},
	{
		name:  "create table",
		match: matches(reCreateTable),
		build: func(cat catalog.Catalog) []Suggestion {
			var l list
			l.add(createTableOpt...)
			for _, t := range cat.Tables() {
				l.add(Suggestion{Label: t.Name, Kind: Table, Detail: "Existing table name"})
			}
			return l.items
		},
	},
	{
		name:  "column type",
		match: matches(reColumnDef),
		build: static(columnTypes),
	},
	{
		name:  "select",
		match: matches(reSelect),
		build: func(cat catalog.Catalog) []Suggestion {
			var l list
			l.add(Suggestion{Label: "*", Kind: Keyword})
			l.add(fields(cat)...)
			l.add(Suggestion{Label: "DISTINCT", Kind: Keyword})
			l.add(aggregates...)
			return l.items
		},
	},
	{
		name:  "after projection",
		match: afterProjection,
		build: static(selectClauses),
	},
	{
		name:  "from",
		match: matches(reFrom),
		build: func(cat catalog.Catalog) []Suggestion {
			var l list
			for _, t := range cat.Tables() {
				l.add(Suggestion{Label: t.Name, Kind: Table, Detail: fmt.Sprintf("%d columns", len(t.Columns))})
			}
			return l.items
		},
	},
	{
		name:  "after from table",
		match: matches(reFromTable),
		build: static(fromClauses),
	},
	{
		name:  "condition",
		match: matches(reCondition),
		build: fields,
	},
	{
		name:  "comparison",
		match: matches(reComparisonLHS),
		build: static(comparisonOps),
	},
}

func matches(re *regexp.Regexp) func(Context) bool {
	return func(c Context) bool { return re.MatchString(c.Before) }
}

// afterProjection matches SELECT followed by a finished projection list.
// The list may not contain a clause keyword, otherwise the cursor is in a
// later clause and the FROM/WHERE rules own it.
func afterProjection(c Context) bool {
	if reSelectStar.MatchString(c.Before) {
		return true
	}
	m := reSelectList.FindStringSubmatch(c.Before)
	if m == nil {
		return false
	}
	for _, w := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r' }) {
		if clauseWords[strings.ToUpper(w)] {
			return false
		}
	}
	return true
}

func static(items []Suggestion) func(catalog.Catalog) []Suggestion {
	return func(catalog.Catalog) []Suggestion {
		return append([]Suggestion(nil), items...)
	}
}

// fields flattens every column of every table. A column name shared by
// several tables appears once, at its first position, naming all owners.
func fields(cat catalog.Catalog) []Suggestion {
	var order []string
	owners := make(map[string][]string)
	for _, t := range cat.Tables() {
		for _, col := range t.Columns {
			if _, seen := owners[col]; !seen {
				order = append(order, col)
			}
			owners[col] = appendUnique(owners[col], t.Name)
		}
	}
	out := make([]Suggestion, 0, len(order))
	for _, col := range order {
		out = append(out, Suggestion{Label: col, Kind: Field, Detail: "Column from " + strings.Join(owners[col], ", ")})
	}
	return out
}

func keywords(kind Kind, labels ...string) []Suggestion {
	out := make([]Suggestion, len(labels))
	for i, l := range labels {
		out[i] = Suggestion{Label: l, Kind: kind}
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// list drops suggestions whose label is already present.
type list struct {
	items []Suggestion
	seen  map[string]bool
}

func (l *list) add(items ...Suggestion) {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	for _, it := range items {
		if l.seen[it.Label] {
			continue
		}
		l.seen[it.Label] = true
		l.items = append(l.items, it)
	}
}
