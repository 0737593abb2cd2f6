package assistant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/syncup/syncup/internal/auth"
)

// NoQueryPrefix starts model replies to questions the data cannot answer.
const NoQueryPrefix = "NO_QUERY:"

// schemaCatalog describes the tables the assistant may query.
const schemaCatalog = `user_directory(id, company_id, team_id, email, name, role: admin|manager|member, created_at, deactivated_at)
teams(id, company_id, name, created_at, updated_at)
projects(id, company_id, name, description, status: active|archived, created_at, updated_at)
project_assignments(project_id, user_id, assigned_at)
sprints(id, company_id, project_id, name, goal, start_date, end_date, status: Planning|Active|Completed, created_at, updated_at)
tasks(id, company_id, project_id, sprint_id, title, description, status: todo|in_progress|review|done, priority: low|medium|high|urgent, story_points, assignee_id, due_date, completed_at, created_at, updated_at)
daily_reports(id, company_id, user_id, report_date, yesterday, today, blockers, created_at, updated_at)
leave_plans(id, company_id, user_id, start_date, end_date, leave_type: vacation|sick|personal|remote|other, reason, status: pending|approved|rejected|cancelled, reviewed_by, reviewed_at, created_at)
announcements(id, company_id, team_id, author_id, title, content, priority: normal|important|urgent, expires_at, created_at)
announcement_reads(announcement_id, user_id, read_at)`

const summarySystem = `You summarise query results for a team collaboration app.
Answer the user's question in at most a few sentences using only the rows given.
Refer to people, projects and sprints by name. Do not mention SQL, tables or IDs.`

var (
	codeFence  = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	selectWord = regexp.MustCompile(`(?i)\bselect\b`)
)

// BuildPrompt returns the system instruction for turning question into SQL
// on behalf of scope.
func BuildPrompt(scope Scope, now time.Time) string {
	var b strings.Builder
	b.WriteString("You translate questions about a team collaboration app into one PostgreSQL query.\n\n")
	b.WriteString("Tables:\n")
	b.WriteString(schemaCatalog)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Reply with exactly one SELECT statement and nothing else.\n")
	b.WriteString("- Use only the tables above. People are in user_directory; join it on user_id, assignee_id, author_id or reviewed_by to show names.\n")
	b.WriteString("- Use explicit JOIN ... ON or LEFT JOIN ... ON. No subqueries, CTEs, UNION or comma joins.\n")
	b.WriteString("- Do not filter by company; that is applied automatically.\n")
	b.WriteString("- Call only aggregate, date, string and math functions such as COUNT, SUM, date_trunc, EXTRACT, COALESCE, lower and round. No quoted identifiers.\n")
	b.WriteString("- Add LIMIT 100 unless the question asks for a count or aggregate.\n")
	fmt.Fprintf(&b, "- Today is %s (%s). Use date literals such as '%s'.\n",
		now.UTC().Format(time.DateOnly), now.UTC().Weekday(), now.UTC().Format(time.DateOnly))
	fmt.Fprintf(&b, "- The person asking has user id '%s' and role %s.", scope.UserID, scope.Role)
	if scope.Role == auth.RoleMember {
		b.WriteString(" Project data is limited to projects they are assigned to.")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- If the question cannot be answered from these tables, reply with %s followed by a one-sentence answer.\n", NoQueryPrefix)
	return b.String()
}

// SummaryPrompt returns the prompt asking the model to answer question from table.
func SummaryPrompt(question, table string) string {
	return "Question: " + question + "\n\nRows:\n" + table
}

// ExtractSQL pulls the SQL statement out of a model reply, dropping code
// fences and surrounding prose. It reports false when the reply holds no
// SELECT statement.
func ExtractSQL(reply string) (string, bool) {
	text := strings.TrimSpace(reply)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(text, NoQueryPrefix) {
		return "", false
	}

	loc := selectWord.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	text = text[loc[0]:]

	// Prose after the statement starts on a blank line.
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text), true
}

// NoQueryAnswer returns the text of a reply that carries no query.
func NoQueryAnswer(reply string) string {
	text := strings.TrimSpace(reply)
	text = strings.TrimPrefix(text, NoQueryPrefix)
	return strings.TrimSpace(text)
}
