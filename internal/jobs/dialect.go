package jobs

import (
	"strconv"
	"strings"
)

type dialect struct {
	name   string
	driver string
	// tableExists counts tables named by the single bind parameter.
	tableExists string
	// claimLock is appended to the candidate subquery in ClaimNext.
	claimLock   string
	numberBinds bool
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		driver:      "sqlite",
		tableExists: "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?",
	}
	postgresDialect = dialect{
		name:        "postgres",
		driver:      "postgres",
		tableExists: "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name=?",
		claimLock:   " FOR UPDATE SKIP LOCKED",
		numberBinds: true,
	}
)

// rebind rewrites ? placeholders into $n for drivers that need numbered binds.
// Queries in this package never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.numberBinds {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
