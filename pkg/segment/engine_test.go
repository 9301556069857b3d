package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlsplit/internal/testutil"
)

const dumpDoc = `-- core schema
CREATE TABLE tenant (
  tenant_id VARCHAR(32)
) COMMENT 'tenant';

CREATE TABLE sys_user (
  user_id VARCHAR(32)
) COMMENT 'user';

-- insert tenants
INSERT INTO tenant (tenant_id) VALUES
('TENANT_A'),
('TENANT_B');

-- insert modules
INSERT INTO sys_module (id) VALUES (1);
-- insert menus
INSERT INTO sys_menu (id) VALUES (1);
`

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	cfg.Logger = testutil.NewTestLogger(t)
	return New(cfg)
}

func TestEngine_Run_Basic(t *testing.T) {
	eng := newTestEngine(t, Config{Header: Header{Prefix: "core", Database: "core_db"}})

	specs := []Spec{
		{Label: "01_tenant", Title: "Tenant table", Start: "CREATE TABLE tenant", End: ") COMMENT 'tenant';", TrailingNewline: true},
		{Label: "02_user", Start: "CREATE TABLE sys_user", End: ") COMMENT 'user';"},
		{Label: "data_01_tenant", Start: "-- insert tenants", End: "('TENANT_B');"},
		{Label: "data_02_modules", Start: "-- insert modules", End: "-- insert menus", EndMode: EndExclusive},
		{Label: "data_03_menus", Start: "-- insert menus", EndMode: EndOfDocument},
	}

	res := eng.Run(dumpDoc, specs)

	require.Empty(t, res.Skipped)
	require.Len(t, res.Segments, 5)
	assert.Equal(t, []string{
		"01_tenant.sql", "02_user.sql", "data_01_tenant.sql", "data_02_modules.sql", "data_03_menus.sql",
	}, res.Files())

	tenant := res.Segments[0]
	assert.Equal(t, "Tenant table", tenant.Title)
	assert.Equal(t, "CREATE TABLE tenant (\n  tenant_id VARCHAR(32)\n) COMMENT 'tenant';\n", tenant.Body)
	assert.True(t, strings.HasPrefix(tenant.Text, "-- ==="))
	assert.Contains(t, tenant.Text, "-- core - Tenant table\n")
	assert.Contains(t, tenant.Text, "USE core_db;\n\n")

	user := res.Segments[1]
	assert.Equal(t, "02_user", user.Title, "title falls back to the label")
	assert.Equal(t, 0, user.Part)

	assert.Equal(t, "-- insert modules\nINSERT INTO sys_module (id) VALUES (1);\n", res.Segments[3].Body)
	assert.Equal(t, "-- insert menus\nINSERT INTO sys_menu (id) VALUES (1);\n", res.Segments[4].Body)
}

func TestEngine_Run_HeaderStripReproducesSource(t *testing.T) {
	h := Header{Prefix: "core", Database: "core_db"}
	eng := newTestEngine(t, Config{Header: h})

	specs := []Spec{
		{Label: "tenant", Start: "CREATE TABLE tenant", End: ") COMMENT 'tenant';"},
		{Label: "user", Start: "CREATE TABLE sys_user", End: ") COMMENT 'user';"},
	}
	res := eng.Run(dumpDoc, specs)
	require.Len(t, res.Segments, 2)

	for _, seg := range res.Segments {
		stripped := strings.TrimPrefix(seg.Text, h.Format(seg.Title))
		assert.Equal(t, dumpDoc[seg.Span.Start:seg.Span.End], stripped, seg.Label)
	}
}

func TestEngine_Run_MissingMarkerSkips(t *testing.T) {
	eng := newTestEngine(t, Config{})

	specs := []Spec{
		{Label: "tenant", Start: "CREATE TABLE tenant", End: ") COMMENT 'tenant';"},
		{Label: "ghost", Start: "CREATE TABLE ghost", End: ");"},
		{Label: "user", Start: "CREATE TABLE sys_user", End: ") COMMENT 'user';"},
	}

	with := eng.Run(dumpDoc, specs)
	without := eng.Run(dumpDoc, []Spec{specs[0], specs[2]})

	require.Len(t, with.Skipped, 1)
	assert.Equal(t, "ghost", with.Skipped[0].Label)
	assert.ErrorIs(t, with.Skipped[0].Err, ErrMarkerNotFound)
	assert.Equal(t, without.Files(), with.Files())
}

func TestEngine_Run_ConcreteScenario(t *testing.T) {
	eng := newTestEngine(t, Config{})

	res := eng.Run(createDoc, []Spec{{Label: "t", Start: "CREATE TABLE t", End: ") COMMENT 't';"}})

	require.Len(t, res.Segments, 1)
	assert.Equal(t, "CREATE TABLE t (\n id INT\n) COMMENT 't';", res.Segments[0].Body)
}

func TestEngine_Run_Subdivision(t *testing.T) {
	lines := numberedLines(10)
	doc := "-- seed\n" + strings.Join(lines, "\n") + "\n-- end\n"
	body := "-- seed\n" + strings.Join(lines, "\n") + "\n"

	t.Run("over the limit splits in two", func(t *testing.T) {
		eng := newTestEngine(t, Config{})
		spec := Spec{
			Label:    "data_users",
			Title:    "Users",
			Start:    "-- seed",
			End:      "-- end",
			EndMode:  EndExclusive,
			MaxLines: 5,
			Preamble: "INSERT INTO x VALUES\n",
		}

		res := eng.Run(doc, []Spec{spec})
		require.Len(t, res.Segments, 2)

		want1, want2 := Subdivide(body, Midpoint, spec.Preamble)
		assert.Equal(t, want1, res.Segments[0].Body)
		assert.Equal(t, want2, res.Segments[1].Body)
		assert.Equal(t, "data_users_01.sql", res.Segments[0].File)
		assert.Equal(t, "data_users_02.sql", res.Segments[1].File)
		assert.Equal(t, "Users (part 1)", res.Segments[0].Title)
		assert.Equal(t, 1, res.Segments[0].Part)
		assert.Equal(t, 2, res.Segments[1].Part)
		assert.True(t, strings.HasPrefix(res.Segments[1].Body, "INSERT INTO x VALUES\n"))
	})

	t.Run("under the limit stays whole", func(t *testing.T) {
		eng := newTestEngine(t, Config{})
		res := eng.Run(doc, []Spec{{
			Label: "data_users", Start: "-- seed", End: "-- end", EndMode: EndExclusive,
			Preamble: "INSERT INTO x VALUES\n",
		}})
		require.Len(t, res.Segments, 1)
		assert.Equal(t, body, res.Segments[0].Body)
	})

	t.Run("engine threshold applies to specs with a preamble", func(t *testing.T) {
		eng := newTestEngine(t, Config{Threshold: 4})
		res := eng.Run(doc, []Spec{{
			Label: "data_users", Start: "-- seed", End: "-- end", EndMode: EndExclusive,
			Preamble: "INSERT INTO x VALUES\n",
		}})
		assert.Len(t, res.Segments, 2)
	})

	t.Run("specs without subdivision settings are never split", func(t *testing.T) {
		eng := newTestEngine(t, Config{Threshold: 2})
		res := eng.Run(doc, []Spec{{Label: "ddl", Start: "-- seed", End: "-- end", EndMode: EndExclusive}})
		assert.Len(t, res.Segments, 1)
	})

	t.Run("explicit part names", func(t *testing.T) {
		eng := newTestEngine(t, Config{})
		res := eng.Run(doc, []Spec{{
			Label: "users", Start: "-- seed", End: "-- end", EndMode: EndExclusive,
			MaxLines: 5, Split: SplitAtMarker, SplitMarker: "(7,",
			PartFiles:  [2]string{"data_22_users_supplier_01.sql", "data_23_users_supplier_02.sql"},
			PartTitles: [2]string{"Suppliers 1", "Suppliers 2"},
		}})
		require.Len(t, res.Segments, 2)
		assert.Equal(t, "data_22_users_supplier_01.sql", res.Segments[0].File)
		assert.Equal(t, "Suppliers 2", res.Segments[1].Title)
		assert.True(t, strings.HasPrefix(res.Segments[1].Body, "(7, 'row 7'),"))
	})
}

func TestEngine_Run_MarkerOnFirstLineKeepsBothParts(t *testing.T) {
	doc := "('U1', 'a'),\n('U2', 'b'),\n('U3', 'c'),\n('U4', 'd');\n"
	eng := newTestEngine(t, Config{})

	res := eng.Run(doc, []Spec{{
		Label: "u", Start: "('U1'", EndMode: EndOfDocument,
		MaxLines: 2, Split: SplitAtMarker, SplitMarker: "U1",
	}})
	require.Len(t, res.Segments, 2)
	assert.Equal(t, "u_01.sql", res.Segments[0].File)
	assert.Equal(t, "('U1', 'a'),\n('U2', 'b'),", res.Segments[0].Body)
	assert.Equal(t, "('U3', 'c'),\n('U4', 'd');\n", res.Segments[1].Body)
}

func TestEngine_Run_ChainedSearch(t *testing.T) {
	doc := "-- batch\n(1);\n-- batch\n(2);\n"
	eng := newTestEngine(t, Config{})

	specs := []Spec{
		{Label: "first", Start: "-- batch", End: ";"},
		{Label: "second", Start: "-- batch", End: ";", After: AnchorPrevious},
		{Label: "again_from_origin", Start: "-- batch", End: ";"},
	}
	res := eng.Run(doc, specs)

	require.Len(t, res.Segments, 3)
	assert.Equal(t, "-- batch\n(1);", res.Segments[0].Body)
	assert.Equal(t, "-- batch\n(2);", res.Segments[1].Body)
	assert.Equal(t, "-- batch\n(1);", res.Segments[2].Body)
}

func TestEngine_Run_InvertedSpanAbortsOnlyThatSpec(t *testing.T) {
	eng := newTestEngine(t, Config{MaxSpan: 80})

	specs := []Spec{
		{Label: "whole", Start: "-- core schema", EndMode: EndOfDocument},
		{Label: "user", Start: "CREATE TABLE sys_user", End: ") COMMENT 'user';"},
	}
	res := eng.Run(dumpDoc, specs)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "whole", res.Skipped[0].Label)
	assert.ErrorIs(t, res.Skipped[0].Err, ErrInvertedSpan)
	assert.Equal(t, []string{"user.sql"}, res.Files())
}

func TestEngine_Run_MaxBytes(t *testing.T) {
	eng := newTestEngine(t, Config{})
	res := eng.Run(dumpDoc, []Spec{{Label: "tail", Start: "-- insert modules", EndMode: EndOfDocument, MaxBytes: 17}})

	require.Len(t, res.Segments, 1)
	assert.Equal(t, "-- insert modules", res.Segments[0].Body)
}

func TestEngine_Run_Deterministic(t *testing.T) {
	eng := newTestEngine(t, Config{Header: Header{Database: "db"}})
	specs := []Spec{
		{Label: "tenant", Start: "CREATE TABLE tenant", End: ") COMMENT 'tenant';"},
		{Label: "data", Start: "-- insert tenants", End: "-- insert modules", EndMode: EndExclusive, MaxLines: 2, Preamble: "INSERT INTO tenant (tenant_id) VALUES\n"},
	}
	assert.Equal(t, eng.Run(dumpDoc, specs), eng.Run(dumpDoc, specs))
}

func TestSegment_Lines(t *testing.T) {
	seg := Segment{Text: "a\nb\nc"}
	assert.Equal(t, 3, seg.Lines())
}
