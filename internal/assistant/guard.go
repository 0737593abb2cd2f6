package assistant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/auth"
)

// ErrRejected is wrapped by every guard rejection.
var ErrRejected = errors.New("query rejected")

var (
	ErrNotSelect        = fmt.Errorf("%w: only a single SELECT statement is allowed", ErrRejected)
	ErrForbiddenKeyword = fmt.Errorf("%w: forbidden keyword", ErrRejected)
	ErrForeignTenant    = fmt.Errorf("%w: query targets another company", ErrRejected)
	ErrUnsupportedQuery = fmt.Errorf("%w: unsupported query shape", ErrRejected)
	ErrForbiddenCall    = fmt.Errorf("%w: function not allowed", ErrRejected)
)

// Scope identifies the caller a generated query runs on behalf of.
type Scope struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
	Role      string
}

var (
	selectPrefix    = regexp.MustCompile(`(?i)^select\b`)
	selectKeyword   = regexp.MustCompile(`(?i)\bselect\b`)
	compoundKeyword = regexp.MustCompile(`(?i)\b(union|intersect|except|with|lateral)\b`)
	blockedKeyword  = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|grant|revoke|exec|execute|merge|copy|call|do|lock|vacuum|reindex|comment|set|reset|into|listen|notify|password_hash)\b`)
	catalogAccess   = regexp.MustCompile(`(?i)\bpg_[a-z0-9_]*|\binformation_schema\b`)
	companyLiteral  = regexp.MustCompile(`(?i)\bcompany_id\s*=\s*'([^']*)'`)
	fromOrJoin      = regexp.MustCompile(`(?i)\b(from|join)\b`)
	tableAfter      = regexp.MustCompile(`(?i)^\s+((?:public\.)?[a-z_][a-z0-9_]*)(?:\s+(?:as\s+)?([a-z_][a-z0-9_]*))?(\s*,)?`)
	outerJoinBefore = regexp.MustCompile(`(?i)\b(left|right|full)(\s+outer)?\s+$`)
	whereKeyword    = regexp.MustCompile(`(?i)\bwhere\b`)
	clauseTail      = regexp.MustCompile(`(?i)\b(group\s+by|having|order\s+by|limit|offset|window|fetch)\b`)
	callSite        = regexp.MustCompile(`(?i)([a-z_][a-z0-9_]*)\s*\(`)
)

// callableFunctions are the functions a query may call. Anything able to
// run SQL held in a string or to touch session state stays out.
var callableFunctions = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"string_agg": true, "array_agg": true, "bool_and": true, "bool_or": true, "every": true,
	"percentile_cont": true, "percentile_disc": true,
	"row_number": true, "rank": true, "dense_rank": true,
	"coalesce": true, "nullif": true, "greatest": true, "least": true, "cast": true,
	"extract": true, "date_part": true, "date_trunc": true, "age": true, "now": true,
	"make_date": true, "make_interval": true, "justify_days": true, "to_char": true, "to_date": true,
	"lower": true, "upper": true, "initcap": true, "length": true, "char_length": true,
	"trim": true, "btrim": true, "ltrim": true, "rtrim": true, "substring": true, "substr": true,
	"replace": true, "concat": true, "concat_ws": true, "position": true, "split_part": true,
	"left": true, "right": true,
	"round": true, "floor": true, "ceil": true, "ceiling": true, "abs": true,
}

// parenKeywords may precede an opening parenthesis without being a call.
var parenKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true, "not": true,
	"in": true, "exists": true, "on": true, "using": true, "as": true, "by": true,
	"having": true, "when": true, "then": true, "else": true, "case": true, "is": true,
	"like": true, "ilike": true, "between": true, "any": true, "all": true, "some": true,
	"distinct": true, "filter": true, "over": true, "group": true, "join": true,
	"limit": true, "offset": true,
	"numeric": true, "decimal": true, "varchar": true, "char": true,
}

// reservedAliases are keywords the alias position of a table reference may hold.
var reservedAliases = map[string]bool{
	"where": true, "join": true, "inner": true, "left": true, "right": true, "full": true,
	"cross": true, "outer": true, "natural": true, "on": true, "using": true, "group": true,
	"order": true, "limit": true, "offset": true, "having": true, "window": true, "fetch": true,
}

// tenantTables carry a company_id column.
var tenantTables = map[string]bool{
	"user_directory": true,
	"teams":          true,
	"projects":       true,
	"sprints":        true,
	"tasks":          true,
	"daily_reports":  true,
	"leave_plans":    true,
	"announcements":  true,
}

// linkTables inherit their tenant through a parent table.
var linkTables = map[string]struct{ column, parent string }{
	"project_assignments": {column: "project_id", parent: "projects"},
	"announcement_reads":  {column: "announcement_id", parent: "announcements"},
}

// projectScoped maps project-bound tables to the column holding the project id.
var projectScoped = map[string]string{
	"projects": "id",
	"sprints":  "project_id",
	"tasks":    "project_id",
}

type tableRef struct {
	table     string
	qualifier string
	nullable  bool // right side of a LEFT JOIN
}

// Guard validates sql and rewrites it so it only reads rows of the caller's
// company and, for members, of the projects they are assigned to.
func Guard(sql string, scope Scope) (string, error) {
	q, err := Validate(sql)
	if err != nil {
		return "", err
	}
	q, err = ScopeTenant(q, scope.CompanyID)
	if err != nil {
		return "", err
	}
	return ScopeRole(q, scope.Role, scope.UserID)
}

// Validate accepts a single read-only SELECT statement and returns it
// without surrounding whitespace or a trailing semicolon.
func Validate(sql string) (string, error) {
	q := normalize(sql)
	if q == "" {
		return "", ErrNotSelect
	}

	masked, err := maskLiterals(q)
	if err != nil {
		return "", err
	}

	switch {
	case strings.Contains(masked, ";"):
		return "", fmt.Errorf("%w: multiple statements", ErrUnsupportedQuery)
	case strings.Contains(masked, "--"), strings.Contains(masked, "/*"):
		return "", fmt.Errorf("%w: comments", ErrUnsupportedQuery)
	case strings.ContainsAny(masked, `\$`):
		return "", fmt.Errorf("%w: escapes or parameters", ErrUnsupportedQuery)
	}

	if !selectPrefix.MatchString(masked) {
		return "", ErrNotSelect
	}
	if kw := blockedKeyword.FindString(masked); kw != "" {
		return "", fmt.Errorf("%w: %s", ErrForbiddenKeyword, strings.ToUpper(kw))
	}
	if ref := catalogAccess.FindString(masked); ref != "" {
		return "", fmt.Errorf("%w: %s", ErrForbiddenKeyword, ref)
	}
	if len(selectKeyword.FindAllStringIndex(masked, -1)) > 1 {
		return "", fmt.Errorf("%w: subqueries", ErrUnsupportedQuery)
	}
	if kw := compoundKeyword.FindString(masked); kw != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedQuery, strings.ToUpper(kw))
	}
	if strings.Contains(masked, `"`) {
		return "", fmt.Errorf("%w: quoted identifiers", ErrUnsupportedQuery)
	}
	if err := checkCalls(masked); err != nil {
		return "", err
	}

	return q, nil
}

// checkCalls rejects calls to anything outside callableFunctions, including
// schema-qualified names.
func checkCalls(masked string) error {
	for _, m := range callSite.FindAllStringSubmatchIndex(masked, -1) {
		name := strings.ToLower(masked[m[2]:m[3]])
		if m[2] > 0 && masked[m[2]-1] == '.' {
			return fmt.Errorf("%w: %s", ErrForbiddenCall, masked[m[2]:m[3]])
		}
		if parenKeywords[name] || callableFunctions[name] {
			continue
		}
		return fmt.Errorf("%w: %s", ErrForbiddenCall, name)
	}
	return nil
}

// ScopeTenant adds a company_id predicate for every table the query reads.
// Existing company_id comparisons are kept but must name companyID.
func ScopeTenant(q string, companyID uuid.UUID) (string, error) {
	id := companyID.String()
	for _, m := range companyLiteral.FindAllStringSubmatch(q, -1) {
		if !strings.EqualFold(m[1], id) {
			return "", ErrForeignTenant
		}
	}

	return addPredicates(q, func(ref tableRef) (string, error) {
		if tenantTables[ref.table] {
			return nullable(ref, fmt.Sprintf("%s.company_id = '%s'", ref.qualifier, id), "company_id"), nil
		}
		if link, ok := linkTables[ref.table]; ok {
			pred := fmt.Sprintf("%s.%s IN (SELECT id FROM %s WHERE company_id = '%s')",
				ref.qualifier, link.column, link.parent, id)
			return nullable(ref, pred, link.column), nil
		}
		return "", fmt.Errorf("%w: table %s is not available", ErrUnsupportedQuery, ref.table)
	})
}

// ScopeRole restricts members to the projects they are assigned to. Other
// roles pass through unchanged.
func ScopeRole(q string, role string, userID uuid.UUID) (string, error) {
	if role != auth.RoleMember {
		return q, nil
	}

	return addPredicates(q, func(ref tableRef) (string, error) {
		column, ok := projectScoped[ref.table]
		if !ok {
			return "", nil
		}
		pred := fmt.Sprintf("%s.%s IN (SELECT project_id FROM project_assignments WHERE user_id = '%s')",
			ref.qualifier, column, userID.String())
		return nullable(ref, pred, column), nil
	})
}

// addPredicates parses the top-level table references of q, asks predFor for
// a condition per reference and ANDs the conditions into the WHERE clause.
func addPredicates(q string, predFor func(ref tableRef) (string, error)) (string, error) {
	masked, err := maskLiterals(q)
	if err != nil {
		return "", err
	}
	depth := parenDepth(masked)

	refs, err := tableRefs(masked, q, depth)
	if err != nil {
		return "", err
	}
	if len(refs) == 0 {
		return "", fmt.Errorf("%w: query reads no table", ErrUnsupportedQuery)
	}

	var preds []string
	for _, ref := range refs {
		pred, err := predFor(ref)
		if err != nil {
			return "", err
		}
		if pred != "" {
			preds = append(preds, pred)
		}
	}
	if len(preds) == 0 {
		return q, nil
	}
	cond := strings.Join(preds, " AND ")

	if where := firstTopLevel(masked, depth, whereKeyword, 0); where != nil {
		end := len(q)
		if tail := firstTopLevel(masked, depth, clauseTail, where[1]); tail != nil {
			end = tail[0]
		}
		expr := strings.TrimSpace(q[where[1]:end])
		return joinClauses(q[:where[0]], "WHERE "+cond+" AND ("+expr+")", q[end:]), nil
	}

	from := firstTopLevel(masked, depth, fromOrJoin, 0)
	end := len(q)
	if tail := firstTopLevel(masked, depth, clauseTail, from[1]); tail != nil {
		end = tail[0]
	}
	return joinClauses(q[:end], "WHERE "+cond, q[end:]), nil
}

// tableRefs parses every top-level FROM/JOIN target. Any target it cannot
// parse rejects the query so no table escapes filtering.
func tableRefs(masked, q string, depth []int) ([]tableRef, error) {
	var refs []tableRef
	for _, loc := range fromOrJoin.FindAllStringIndex(masked, -1) {
		if depth[loc[0]] != 0 {
			continue
		}

		m := tableAfter.FindStringSubmatchIndex(masked[loc[1]:])
		if m == nil {
			return nil, fmt.Errorf("%w: unparseable table reference", ErrUnsupportedQuery)
		}
		if m[6] >= 0 {
			return nil, fmt.Errorf("%w: comma-separated FROM list", ErrUnsupportedQuery)
		}

		name := strings.ToLower(q[loc[1]+m[2] : loc[1]+m[3]])
		ref := tableRef{table: strings.TrimPrefix(name, "public."), qualifier: name}
		if m[4] >= 0 {
			alias := q[loc[1]+m[4] : loc[1]+m[5]]
			if !reservedAliases[strings.ToLower(alias)] {
				ref.qualifier = alias
			}
		}

		if strings.EqualFold(masked[loc[0]:loc[1]], "join") {
			if kind := outerJoinBefore.FindStringSubmatch(masked[:loc[0]]); kind != nil {
				if !strings.EqualFold(kind[1], "left") {
					return nil, fmt.Errorf("%w: %s JOIN", ErrUnsupportedQuery, strings.ToUpper(kind[1]))
				}
				ref.nullable = true
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// nullable keeps null-extended rows of a LEFT JOIN.
func nullable(ref tableRef, pred, column string) string {
	if !ref.nullable {
		return pred
	}
	return fmt.Sprintf("(%s OR %s.%s IS NULL)", pred, ref.qualifier, column)
}

// firstTopLevel returns the first match of re at or after from that sits
// outside any parentheses.
func firstTopLevel(masked string, depth []int, re *regexp.Regexp, from int) []int {
	for _, loc := range re.FindAllStringIndex(masked[from:], -1) {
		start, end := loc[0]+from, loc[1]+from
		if depth[start] == 0 {
			return []int{start, end}
		}
	}
	return nil
}

// parenDepth returns the parenthesis nesting depth at every byte of s.
func parenDepth(s string) []int {
	depth := make([]int, len(s)+1)
	d := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ')' && d > 0 {
			d--
		}
		depth[i] = d
		if s[i] == '(' {
			d++
		}
	}
	depth[len(s)] = d
	return depth
}

// maskLiterals blanks the contents of single-quoted string literals so
// keyword scans only see SQL structure. Byte offsets are preserved.
func maskLiterals(q string) (string, error) {
	b := []byte(q)
	inLiteral := false
	for i := 0; i < len(b); i++ {
		if b[i] != '\'' {
			if inLiteral {
				b[i] = ' '
			}
			continue
		}
		if inLiteral && i+1 < len(b) && b[i+1] == '\'' {
			b[i], b[i+1] = ' ', ' '
			i++
			continue
		}
		inLiteral = !inLiteral
	}
	if inLiteral {
		return "", fmt.Errorf("%w: unterminated string literal", ErrUnsupportedQuery)
	}
	return string(b), nil
}

func normalize(sql string) string {
	q := strings.TrimSpace(sql)
	for strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	}
	return q
}

func joinClauses(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
