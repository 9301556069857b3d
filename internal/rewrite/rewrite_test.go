package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const supplierRows = `INSERT INTO sys_user (user_id, tenant_id, dept_id, position_id, username) VALUES
('USER_59', 'TENANT_SUPPLIER', 'DEPT_SUPPLIER_RAW', 'supplier59'),
('USER_60', 'TENANT_SUPPLIER', 'DEPT_SUPPLIER_RAW', 'POS_SUPPLIER_MATERIAL', 'supplier60'),
('USER_01', 'TENANT_UK', 'DEPT_IT', 'POS_IT', 'alice');`

var positionRule = Rule{
	Name:    "supplier position",
	Pattern: `(\('USER_\d+', 'TENANT_SUPPLIER', 'DEPT_SUPPLIER_RAW', )('POS_SUPPLIER_MATERIAL', )?(['"])`,
	Replace: `${1}'POS_SUPPLIER_MATERIAL', ${3}`,
}

func TestRewriter_Apply(t *testing.T) {
	rw, err := Compile([]Rule{positionRule})
	require.NoError(t, err)

	out, counts := rw.Apply(supplierRows)

	assert.Contains(t, out, "('USER_59', 'TENANT_SUPPLIER', 'DEPT_SUPPLIER_RAW', 'POS_SUPPLIER_MATERIAL', 'supplier59')")
	assert.Contains(t, out, "('USER_60', 'TENANT_SUPPLIER', 'DEPT_SUPPLIER_RAW', 'POS_SUPPLIER_MATERIAL', 'supplier60')")
	assert.Contains(t, out, "('USER_01', 'TENANT_UK', 'DEPT_IT', 'POS_IT', 'alice')")
	assert.Equal(t, []Count{{Rule: "supplier position", Matches: 2}}, counts)
}

func TestRewriter_ApplyIsIdempotent(t *testing.T) {
	rw, err := Compile([]Rule{positionRule})
	require.NoError(t, err)

	once, _ := rw.Apply(supplierRows)
	twice, _ := rw.Apply(once)
	assert.Equal(t, once, twice)
}

func TestRewriter_OrderMatters(t *testing.T) {
	rw, err := Compile([]Rule{
		{Pattern: `foo`, Replace: `bar`},
		{Pattern: `bar`, Replace: `baz`},
	})
	require.NoError(t, err)

	out, counts := rw.Apply("foo bar")
	assert.Equal(t, "baz baz", out)
	assert.Equal(t, 1, counts[0].Matches)
	assert.Equal(t, 2, counts[1].Matches)
	assert.Equal(t, "rewrite[0]", counts[0].Rule)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name      string
		rules     []Rule
		errSubstr string
	}{
		{name: "empty pattern", rules: []Rule{{Name: "x"}}, errSubstr: "x: pattern is required"},
		{name: "bad regexp", rules: []Rule{{Name: "y", Pattern: "("}}, errSubstr: "y: invalid pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.rules)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestRewriter_Empty(t *testing.T) {
	rw, err := Compile(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rw.Len())

	out, counts := rw.Apply("unchanged")
	assert.Equal(t, "unchanged", out)
	assert.Empty(t, counts)
}
