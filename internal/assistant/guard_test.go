package assistant_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/assistant"
	"github.com/syncup/syncup/internal/auth"
)

var (
	companyID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	userID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

const (
	cid = "11111111-1111-1111-1111-111111111111"
	uid = "22222222-2222-2222-2222-222222222222"
)

func TestValidate_Accepts(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"plain select", "SELECT id FROM tasks", "SELECT id FROM tasks"},
		{"trailing semicolons and whitespace", "  select id from tasks ;; \n", "select id from tasks"},
		{"keyword inside literal", "SELECT id FROM tasks WHERE title = 'drop it; -- now'", "SELECT id FROM tasks WHERE title = 'drop it; -- now'"},
		{"escaped quote", "SELECT 'it''s' AS x FROM tasks", "SELECT 'it''s' AS x FROM tasks"},
		{"allowed functions", "SELECT date_trunc('week', created_at), COUNT(*) FROM tasks", "SELECT date_trunc('week', created_at), COUNT(*) FROM tasks"},
		{"left function and left join", "SELECT LEFT(t.title, 10) FROM tasks t LEFT JOIN sprints s ON s.id = t.sprint_id", "SELECT LEFT(t.title, 10) FROM tasks t LEFT JOIN sprints s ON s.id = t.sprint_id"},
		{"column containing keyword", "SELECT updated_at, created_at FROM tasks", "SELECT updated_at, created_at FROM tasks"},
		{"extract from", "SELECT EXTRACT(DOW FROM due_date) FROM tasks", "SELECT EXTRACT(DOW FROM due_date) FROM tasks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assistant.Validate(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr error
	}{
		{"empty", "   ", assistant.ErrNotSelect},
		{"delete", "DELETE FROM tasks", assistant.ErrNotSelect},
		{"cte", "WITH x AS (SELECT 1) SELECT * FROM x", assistant.ErrNotSelect},
		{"stacked statement", "SELECT * FROM tasks; DROP TABLE tasks", assistant.ErrUnsupportedQuery},
		{"line comment", "SELECT * FROM tasks -- WHERE company_id = 'x'", assistant.ErrUnsupportedQuery},
		{"block comment", "SELECT * FROM tasks /* hi */", assistant.ErrUnsupportedQuery},
		{"dollar quoting", "SELECT $$x$$", assistant.ErrUnsupportedQuery},
		{"unterminated literal", "SELECT 'oops", assistant.ErrUnsupportedQuery},
		{"select into", "SELECT * INTO backup FROM tasks", assistant.ErrForbiddenKeyword},
		{"row lock", "SELECT * FROM tasks FOR UPDATE", assistant.ErrForbiddenKeyword},
		{"lowercase keyword", "select * from tasks where id in (delete)", assistant.ErrForbiddenKeyword},
		{"password hash", "SELECT password_hash FROM user_directory", assistant.ErrForbiddenKeyword},
		{"catalog function", "SELECT pg_sleep(10)", assistant.ErrForbiddenKeyword},
		{"catalog table", "SELECT * FROM pg_user", assistant.ErrForbiddenKeyword},
		{"information schema", "SELECT * FROM information_schema.tables", assistant.ErrForbiddenKeyword},
		{"subquery", "SELECT id FROM tasks WHERE project_id IN (SELECT id FROM projects)", assistant.ErrUnsupportedQuery},
		{"union", "SELECT id FROM tasks UNION SELECT id FROM sprints", assistant.ErrUnsupportedQuery},
		{"table to xml", "SELECT table_to_xml('users', true, false, '')", assistant.ErrForbiddenCall},
		{"query to xml", "SELECT query_to_xml('select email, password_hash, company_id from users', true, false, '')", assistant.ErrForbiddenCall},
		{"sql text next to a scoped table", "SELECT name, query_to_xml('select * from tasks', true, false, '') FROM teams", assistant.ErrForbiddenCall},
		{"set config", "SELECT set_config('role', 'postgres', true) FROM tasks", assistant.ErrForbiddenCall},
		{"current setting", "SELECT current_setting('app.secret') FROM tasks", assistant.ErrForbiddenCall},
		{"large object", "SELECT lo_import('/etc/passwd') FROM tasks", assistant.ErrForbiddenCall},
		{"dblink", "SELECT * FROM tasks WHERE id::text = dblink('host=x', 'select 1')", assistant.ErrForbiddenCall},
		{"schema-qualified call", "SELECT public.count(id) FROM tasks", assistant.ErrForbiddenCall},
		{"quoted function name", `SELECT "query_to_xml"('select 1', true, false, '') FROM tasks`, assistant.ErrUnsupportedQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := assistant.Validate(tt.sql)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, assistant.ErrRejected)
		})
	}
}

func TestScopeTenant(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "existing where wrapped",
			sql:  "SELECT title FROM tasks WHERE status = 'done' ORDER BY created_at DESC LIMIT 5",
			want: "SELECT title FROM tasks WHERE tasks.company_id = '" + cid + "' AND (status = 'done') ORDER BY created_at DESC LIMIT 5",
		},
		{
			name: "where created before group by",
			sql:  "SELECT status, COUNT(*) FROM tasks t GROUP BY status",
			want: "SELECT status, COUNT(*) FROM tasks t WHERE t.company_id = '" + cid + "' GROUP BY status",
		},
		{
			name: "where appended at end",
			sql:  "SELECT name FROM projects AS p",
			want: "SELECT name FROM projects AS p WHERE p.company_id = '" + cid + "'",
		},
		{
			name: "every joined table filtered",
			sql:  "SELECT u.name, COUNT(t.id) FROM tasks t JOIN user_directory u ON u.id = t.assignee_id GROUP BY u.name",
			want: "SELECT u.name, COUNT(t.id) FROM tasks t JOIN user_directory u ON u.id = t.assignee_id WHERE t.company_id = '" + cid + "' AND u.company_id = '" + cid + "' GROUP BY u.name",
		},
		{
			name: "left join keeps null rows",
			sql:  "SELECT p.name, t.title FROM projects p LEFT JOIN tasks t ON t.project_id = p.id",
			want: "SELECT p.name, t.title FROM projects p LEFT JOIN tasks t ON t.project_id = p.id WHERE p.company_id = '" + cid + "' AND (t.company_id = '" + cid + "' OR t.company_id IS NULL)",
		},
		{
			name: "link table filtered through parent",
			sql:  "SELECT user_id FROM project_assignments",
			want: "SELECT user_id FROM project_assignments WHERE project_assignments.project_id IN (SELECT id FROM projects WHERE company_id = '" + cid + "')",
		},
		{
			name: "function with from keyword",
			sql:  "SELECT EXTRACT(DOW FROM due_date) AS dow FROM tasks",
			want: "SELECT EXTRACT(DOW FROM due_date) AS dow FROM tasks WHERE tasks.company_id = '" + cid + "'",
		},
		{
			name: "own company literal kept",
			sql:  "SELECT id FROM tasks WHERE company_id = '" + cid + "'",
			want: "SELECT id FROM tasks WHERE tasks.company_id = '" + cid + "' AND (company_id = '" + cid + "')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assistant.ScopeTenant(tt.sql, companyID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScopeTenant_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr error
	}{
		{"foreign company literal", "SELECT id FROM tasks WHERE company_id = '99999999-9999-9999-9999-999999999999'", assistant.ErrForeignTenant},
		{"raw users table", "SELECT name FROM users", assistant.ErrUnsupportedQuery},
		{"companies table", "SELECT name FROM companies", assistant.ErrUnsupportedQuery},
		{"chat history", "SELECT content FROM chat_messages", assistant.ErrUnsupportedQuery},
		{"comma join", "SELECT * FROM tasks t, sprints s", assistant.ErrUnsupportedQuery},
		{"right join", "SELECT * FROM tasks t RIGHT JOIN sprints s ON s.id = t.sprint_id", assistant.ErrUnsupportedQuery},
		{"quoted identifier", `SELECT * FROM "tasks"`, assistant.ErrUnsupportedQuery},
		{"no table", "SELECT now()", assistant.ErrUnsupportedQuery},
		{"literal only", "SELECT 'it''s' AS x", assistant.ErrUnsupportedQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := assistant.ScopeTenant(tt.sql, companyID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, assistant.ErrRejected)
		})
	}
}

func TestScopeRole(t *testing.T) {
	assigned := "IN (SELECT project_id FROM project_assignments WHERE user_id = '" + uid + "')"

	tests := []struct {
		name string
		sql  string
		role string
		want string
	}{
		{
			name: "member on tasks",
			sql:  "SELECT title FROM tasks WHERE tasks.company_id = '" + cid + "'",
			role: auth.RoleMember,
			want: "SELECT title FROM tasks WHERE tasks.project_id " + assigned + " AND (tasks.company_id = '" + cid + "')",
		},
		{
			name: "member on projects uses id",
			sql:  "SELECT name FROM projects p",
			role: auth.RoleMember,
			want: "SELECT name FROM projects p WHERE p.id " + assigned,
		},
		{
			name: "member on unscoped table",
			sql:  "SELECT name FROM teams",
			role: auth.RoleMember,
			want: "SELECT name FROM teams",
		},
		{
			name: "manager passes through",
			sql:  "SELECT title FROM tasks",
			role: auth.RoleManager,
			want: "SELECT title FROM tasks",
		},
		{
			name: "admin passes through",
			sql:  "SELECT name FROM projects",
			role: auth.RoleAdmin,
			want: "SELECT name FROM projects",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assistant.ScopeRole(tt.sql, tt.role, userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuard_Member(t *testing.T) {
	// Arrange
	scope := assistant.Scope{CompanyID: companyID, UserID: userID, Role: auth.RoleMember}

	// Act
	got, err := assistant.Guard("select title from tasks where status = 'todo';", scope)

	// Assert
	require.NoError(t, err)
	assert.Equal(t,
		"select title from tasks WHERE tasks.project_id IN (SELECT project_id FROM project_assignments WHERE user_id = '"+uid+
			"') AND (tasks.company_id = '"+cid+"' AND (status = 'todo'))",
		got)
}

func TestGuard_RejectsBeforeRewriting(t *testing.T) {
	scope := assistant.Scope{CompanyID: companyID, UserID: userID, Role: auth.RoleAdmin}

	_, err := assistant.Guard("UPDATE tasks SET status = 'done'", scope)

	assert.ErrorIs(t, err, assistant.ErrNotSelect)
}

func TestGuard_LinkTableStaysTenantScopedForMembers(t *testing.T) {
	scope := assistant.Scope{CompanyID: companyID, UserID: userID, Role: auth.RoleMember}

	got, err := assistant.Guard("SELECT COUNT(*) FROM announcement_reads", scope)

	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(*) FROM announcement_reads WHERE announcement_reads.announcement_id IN (SELECT id FROM announcements WHERE company_id = '"+cid+"')",
		got)
}

func TestGuard_RejectsTablelessQueries(t *testing.T) {
	scope := assistant.Scope{CompanyID: companyID, UserID: userID, Role: auth.RoleMember}

	for _, sql := range []string{
		"SELECT now()",
		"SELECT 1 AS one",
		"SELECT table_to_xml('users', true, false, '')",
	} {
		t.Run(sql, func(t *testing.T) {
			got, err := assistant.Guard(sql, scope)
			require.Error(t, err)
			assert.ErrorIs(t, err, assistant.ErrRejected)
			assert.Empty(t, got)
		})
	}
}
