package completion

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebcauthon/sqlee/internal/catalog"
)

var testCatalog = catalog.New(
	catalog.Table{Name: "users", Columns: []string{"id", "name", "age"}},
	catalog.Table{Name: "orders", Columns: []string{"id", "user_id", "total"}},
)

func labels(items []Suggestion) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func suggestAtEnd(t *testing.T, text string, cat catalog.Catalog) (Completion, bool) {
	t.Helper()
	return Suggest(text, len([]rune(text)), false, cat)
}

func TestSuggest_Rules(t *testing.T) {
	tests := []struct {
		name string
		text string
		rule string
		want []string
	}{
		{
			name: "empty document",
			text: "",
			rule: "statement",
			want: []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER"},
		},
		{
			name: "whitespace only",
			text: "  \n ",
			rule: "statement",
			want: []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER"},
		},
		{
			name: "after create",
			text: "create ",
			rule: "create",
			want: []string{"TABLE", "DATABASE", "INDEX", "VIEW", "FUNCTION", "TRIGGER", "SCHEMA"},
		},
		{
			name: "create with partial object",
			text: "CREATE TAB",
			rule: "create",
			want: []string{"TABLE", "DATABASE", "INDEX", "VIEW", "FUNCTION", "TRIGGER", "SCHEMA"},
		},
		{
			name: "after create table",
			text: "CREATE TABLE ",
			rule: "create table",
			want: []string{"IF NOT EXISTS", "users", "orders"},
		},
		{
			name: "create table partial name",
			text: "CREATE TABLE us",
			rule: "create table",
			want: []string{"IF NOT EXISTS", "users", "orders"},
		},
		{
			name: "column definition",
			text: "CREATE TABLE pets (id ",
			rule: "column type",
			want: []string{
				"INTEGER", "SERIAL", "BIGINT", "DECIMAL", "NUMERIC", "REAL", "DOUBLE PRECISION", "SMALLINT",
				"VARCHAR", "CHAR", "TEXT", "BOOLEAN", "DATE", "TIME", "TIMESTAMP", "JSON", "JSONB", "UUID",
			},
		},
		{
			name: "second column definition",
			text: "CREATE TABLE pets (id INTEGER, name V",
			rule: "column type",
			want: []string{
				"INTEGER", "SERIAL", "BIGINT", "DECIMAL", "NUMERIC", "REAL", "DOUBLE PRECISION", "SMALLINT",
				"VARCHAR", "CHAR", "TEXT", "BOOLEAN", "DATE", "TIME", "TIMESTAMP", "JSON", "JSONB", "UUID",
			},
		},
		{
			name: "after select",
			text: "SELECT ",
			rule: "select",
			want: []string{"*", "id", "name", "age", "user_id", "total", "DISTINCT", "COUNT", "SUM", "AVG", "MAX", "MIN"},
		},
		{
			name: "after select star",
			text: "SELECT * ",
			rule: "after projection",
			want: []string{"FROM", "WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT"},
		},
		{
			name: "after projection list",
			text: "SELECT name, age fr",
			rule: "after projection",
			want: []string{"FROM", "WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT"},
		},
		{
			name: "after from",
			text: "SELECT * FROM ",
			rule: "from",
			want: []string{"users", "orders"},
		},
		{
			name: "from after a projection list",
			text: "SELECT name, age FROM us",
			rule: "from",
			want: []string{"users", "orders"},
		},
		{
			name: "after from table",
			text: "SELECT * FROM users ",
			rule: "after from table",
			want: []string{"WHERE", "GROUP BY", "ORDER BY", "LIMIT", "JOIN", "LEFT JOIN", "RIGHT JOIN", "INNER JOIN"},
		},
		{
			name: "after where",
			text: "SELECT * FROM users WHERE ",
			rule: "condition",
			want: []string{"id", "name", "age", "user_id", "total"},
		},
		{
			name: "after and",
			text: "SELECT * FROM users WHERE age > 3 AND ",
			rule: "condition",
			want: []string{"id", "name", "age", "user_id", "total"},
		},
		{
			name: "after or",
			text: "select * from users where age > 3 or na",
			rule: "condition",
			want: []string{"id", "name", "age", "user_id", "total"},
		},
		{
			name: "after where column",
			text: "SELECT * FROM users WHERE age ",
			rule: "comparison",
			want: []string{"=", ">", "<", ">=", "<=", "<>", "LIKE", "IN", "IS NULL", "IS NOT NULL"},
		},
		{
			name: "qualified column",
			text: "SELECT * FROM users WHERE users.age ",
			rule: "comparison",
			want: []string{"=", ">", "<", ">=", "<=", "<>", "LIKE", "IN", "IS NULL", "IS NOT NULL"},
		},
		{
			name: "identifier ending in or is not a condition",
			text: "SELECT * FROM users WHERE color ",
			rule: "comparison",
			want: []string{"=", ">", "<", ">=", "<=", "<>", "LIKE", "IN", "IS NULL", "IS NOT NULL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := suggestAtEnd(t, tt.text, testCatalog)
			require.True(t, ok)
			assert.Equal(t, tt.rule, c.Rule)
			assert.Equal(t, tt.want, labels(c.Items))
		})
	}
}

func TestSuggest_NoMatch(t *testing.T) {
	for _, text := range []string{
		"SELECT * FROM users WHERE age > ",
		"INSERT INTO users VALUES (1, ",
		"DROP ",
		"SELECT count(*) ",
	} {
		_, ok := suggestAtEnd(t, text, testCatalog)
		assert.False(t, ok, "expected no suggestions for %q", text)
	}
}

func TestSuggest_Explicit(t *testing.T) {
	c, ok := Suggest("SELECT * FROM users WHERE age > ", 32, true, testCatalog)
	require.True(t, ok)
	assert.Equal(t, "statement", c.Rule)
	assert.Equal(t, "SELECT", c.Items[0].Label)
}

func TestSuggest_UsesTextBeforeCursor(t *testing.T) {
	text := "SELECT * FROM users WHERE id = 1"
	c, ok := Suggest(text, len("SELECT * FROM "), false, testCatalog)
	require.True(t, ok)
	assert.Equal(t, "from", c.Rule)
	assert.Equal(t, 14, c.From)
}

func TestSuggest_OffsetClamped(t *testing.T) {
	c, ok := Suggest("SELECT ", 100, false, testCatalog)
	require.True(t, ok)
	assert.Equal(t, "select", c.Rule)

	c, ok = Suggest("SELECT ", -4, false, testCatalog)
	require.True(t, ok)
	assert.Equal(t, "statement", c.Rule)
}

func TestSuggest_FromMarksPartialWord(t *testing.T) {
	c, ok := suggestAtEnd(t, "SELECT * FROM us", testCatalog)
	require.True(t, ok)
	assert.Equal(t, len("SELECT * FROM "), c.From)

	c, ok = suggestAtEnd(t, "SELECT ", testCatalog)
	require.True(t, ok)
	assert.Equal(t, len("SELECT "), c.From)
}

func TestSuggest_FieldsAcrossTables(t *testing.T) {
	cat := catalog.New(
		catalog.Table{Name: "T1", Columns: []string{"a", "b"}},
		catalog.Table{Name: "T2", Columns: []string{"c"}},
	)
	c, ok := suggestAtEnd(t, "SELECT ", cat)
	require.True(t, ok)

	var got []Suggestion
	for _, it := range c.Items {
		if it.Kind == Field {
			got = append(got, it)
		}
	}
	assert.Equal(t, []Suggestion{
		{Label: "a", Kind: Field, Detail: "Column from T1"},
		{Label: "b", Kind: Field, Detail: "Column from T1"},
		{Label: "c", Kind: Field, Detail: "Column from T2"},
	}, got)
	assert.Contains(t, labels(c.Items), "*")
	assert.Contains(t, labels(c.Items), "DISTINCT")
	assert.Contains(t, labels(c.Items), "COUNT")
}

func TestSuggest_SharedColumnListedOnce(t *testing.T) {
	c, ok := suggestAtEnd(t, "SELECT * FROM users WHERE ", testCatalog)
	require.True(t, ok)
	assert.Equal(t, Suggestion{Label: "id", Kind: Field, Detail: "Column from users, orders"}, c.Items[0])
}

func TestSuggest_LabelsUnique(t *testing.T) {
	cat := catalog.New(
		catalog.Table{Name: "t", Columns: []string{"DISTINCT", "x", "x"}},
		catalog.Table{Name: "IF NOT EXISTS"},
	)
	for _, text := range []string{"SELECT ", "CREATE TABLE ", "SELECT * FROM ", "SELECT * FROM t WHERE "} {
		c, ok := suggestAtEnd(t, text, cat)
		require.True(t, ok, text)
		seen := map[string]bool{}
		for _, it := range c.Items {
			assert.False(t, seen[it.Label], "duplicate %q for %q", it.Label, text)
			seen[it.Label] = true
		}
	}
}

func TestSuggest_EmptyCatalog(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"CREATE TABLE ", []string{"IF NOT EXISTS"}},
		{"SELECT ", []string{"*", "DISTINCT", "COUNT", "SUM", "AVG", "MAX", "MIN"}},
		{"SELECT * FROM ", []string{}},
		{"SELECT * FROM t WHERE ", []string{}},
	}
	for _, tt := range tests {
		c, ok := suggestAtEnd(t, tt.text, catalog.Catalog{})
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.want, labels(c.Items), tt.text)
	}
}

func TestSuggest_Idempotent(t *testing.T) {
	for _, text := range []string{"", "SELECT ", "SELECT * FROM users WHERE ", "CREATE TABLE "} {
		a, okA := suggestAtEnd(t, text, testCatalog)
		b, okB := suggestAtEnd(t, text, testCatalog)
		assert.Equal(t, okA, okB)
		assert.Equal(t, a, b)
	}
}

func TestSuggest_ArbitraryInputNeverPanics(t *testing.T) {
	alphabet := []rune("SELECTFROMWHEREANDORcreatetable ()*,.'=<>_\n\té日1")
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		n := rng.Intn(40)
		buf := make([]rune, n)
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}
		assert.NotPanics(t, func() {
			_, _ = Suggest(string(buf), rng.Intn(n+2)-1, false, testCatalog)
		})
	}
}

func TestFilter(t *testing.T) {
	items := keywords(Keyword, "SELECT", "SET", "DELETE")
	assert.Equal(t, []string{"SELECT", "SET"}, labels(Filter(items, "se")))
	assert.Equal(t, []string{"SELECT", "SET", "DELETE"}, labels(Filter(items, "")))
	assert.Empty(t, Filter(items, "x"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "field", Field.String())
	assert.Equal(t, "operator", Operator.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
