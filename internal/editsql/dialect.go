package editsql

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/calebcauthon/sqlee/internal/catalog"
)

// Dialect selects identifier quoting and literal forms for an engine.
type Dialect string

// Dialects of the supported engines. Standard is ANSI SQL.
const (
	Standard Dialect = ""
	SQLite   Dialect = catalog.EngineSQLite
	Postgres Dialect = catalog.EnginePostgres
	MySQL    Dialect = catalog.EngineMySQL
)

// DialectFor returns the dialect of engine, or Standard for unknown engines.
func DialectFor(engine string) Dialect {
	switch d := Dialect(strings.ToLower(engine)); d {
	case SQLite, Postgres, MySQL:
		return d
	}
	return Standard
}

var rePlainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved holds keywords that at least one engine rejects as a bare
// identifier.
var reserved = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		add all alter and any as asc between both by case cast check collate
		column constraint create cross current_date current_time
		current_timestamp current_user default delete desc distinct drop else
		end except exists false fetch for foreign from full grant group having
		in index inner insert intersect into is join key keys leading left like
		limit natural not null offset on or order outer primary range rank
		references right row rows select set table then to trailing true union
		unique update user using values when where window with`) {
		reserved[w] = true
	}
}

// Ident returns name bare when it is a plain, unreserved identifier and
// quoted otherwise: backticks on MySQL, double quotes elsewhere.
func (d Dialect) Ident(name string) string {
	if rePlainIdent.MatchString(name) && !reserved[strings.ToLower(name)] {
		return name
	}
	if d == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Literal renders a result value as SQL.
func (d Dialect) Literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return QuoteString(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return QuoteString(d.timeText(t))
	case []byte:
		if d == Postgres {
			return `'\x` + hex.EncodeToString(t) + `'::bytea`
		}
		return "X'" + strings.ToUpper(hex.EncodeToString(t)) + "'"
	default:
		return fmt.Sprint(t)
	}
}

// timeText spells out the offset so the literal names one instant. MySQL
// datetime literals take no offset and at most microseconds.
func (d Dialect) timeText(t time.Time) string {
	if d == MySQL {
		return t.Format("2006-01-02 15:04:05.999999")
	}
	return t.Format("2006-01-02 15:04:05.999999999-07:00")
}
