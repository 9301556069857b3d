package segment

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createDoc = "-- A\nCREATE TABLE t (\n id INT\n) COMMENT 't';\n-- B\n"

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("(%d, 'row %d'),", i, i)
	}
	return lines
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		start   string
		end     string
		from    int
		want    string
		wantErr error
	}{
		{
			name:  "create table section",
			doc:   createDoc,
			start: "CREATE TABLE t",
			end:   ") COMMENT 't';",
			want:  "CREATE TABLE t (\n id INT\n) COMMENT 't';",
		},
		{
			name:  "end marker before start is ignored",
			doc:   "END;\nSTART body END;\n",
			start: "START",
			end:   "END;",
			want:  "START body END;",
		},
		{
			name:  "search from offset skips earlier occurrence",
			doc:   "X one Y\nX two Y\n",
			start: "X",
			end:   "Y",
			from:  3,
			want:  "X two Y",
		},
		{
			name:    "missing start marker",
			doc:     createDoc,
			start:   "CREATE TABLE missing",
			end:     ");",
			wantErr: ErrMarkerNotFound,
		},
		{
			name:    "missing end marker",
			doc:     createDoc,
			start:   "CREATE TABLE t",
			end:     "never",
			wantErr: ErrMarkerNotFound,
		},
		{
			name:    "offset past the document",
			doc:     createDoc,
			start:   "CREATE",
			end:     ";",
			from:    len(createDoc) + 10,
			wantErr: ErrMarkerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, err := Locate(tt.doc, tt.start, tt.end, tt.from)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, Extract(tt.doc, span))
			assert.LessOrEqual(t, span.Start, span.End)
		})
	}
}

func TestLocate_MarkerErrorDetails(t *testing.T) {
	_, err := Locate(createDoc, "CREATE TABLE t", "never", 0)
	require.Error(t, err)

	var merr *MarkerError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "end", merr.Role)
	assert.Equal(t, "never", merr.Marker)
	assert.Equal(t, strings.Index(createDoc, "CREATE"), merr.From)
}

func TestLocateSpec_EndModes(t *testing.T) {
	doc := "-- modules\nINSERT INTO m VALUES (1);\n-- menus\nINSERT INTO n VALUES (2);\n"

	t.Run("exclusive stops before next section", func(t *testing.T) {
		span, err := LocateSpec(doc, Spec{Label: "m", Start: "-- modules", End: "-- menus", EndMode: EndExclusive}, 0)
		require.NoError(t, err)
		assert.Equal(t, "-- modules\nINSERT INTO m VALUES (1);\n", Extract(doc, span))
	})

	t.Run("exclusive does not close on its own start marker", func(t *testing.T) {
		d := "-- data\nrow\n-- data\nrow2\n"
		span, err := LocateSpec(d, Spec{Label: "d", Start: "-- data", End: "-- data", EndMode: EndExclusive}, 0)
		require.NoError(t, err)
		assert.Equal(t, "-- data\nrow\n", Extract(d, span))
	})

	t.Run("eof runs to the end", func(t *testing.T) {
		span, err := LocateSpec(doc, Spec{Label: "n", Start: "-- menus", EndMode: EndOfDocument}, 0)
		require.NoError(t, err)
		assert.Equal(t, "-- menus\nINSERT INTO n VALUES (2);\n", Extract(doc, span))
	})

	t.Run("inclusive is the default", func(t *testing.T) {
		span, err := LocateSpec(doc, Spec{Label: "m", Start: "INSERT INTO m", End: ");"}, 0)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO m VALUES (1);", Extract(doc, span))
	})
}

func TestCheckSpan(t *testing.T) {
	doc := strings.Repeat("x", 100)

	tests := []struct {
		name    string
		span    Span
		maxSpan int
		wantErr bool
	}{
		{name: "valid", span: Span{Start: 10, End: 20}},
		{name: "empty span is valid", span: Span{Start: 10, End: 10}},
		{name: "end before start", span: Span{Start: 20, End: 10}, wantErr: true},
		{name: "outside document", span: Span{Start: 90, End: 120}, wantErr: true},
		{name: "too long", span: Span{Start: 0, End: 60}, maxSpan: 50, wantErr: true},
		{name: "at limit", span: Span{Start: 0, End: 50}, maxSpan: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSpan(doc, tt.span, tt.maxSpan)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvertedSpan)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
	assert.Equal(t, "abcdef", Truncate("abcdef", 10))
	// "中" is three bytes; a cut inside it backs off to the rune start.
	assert.Equal(t, "ab", Truncate("ab中文", 3))
	assert.Equal(t, "ab中", Truncate("ab中文", 5))
}

func TestSubdivide(t *testing.T) {
	t.Run("ten lines at threshold five", func(t *testing.T) {
		lines := numberedLines(10)
		preamble := "INSERT INTO x VALUES\n"

		part1, part2 := Subdivide(strings.Join(lines, "\n"), nil, preamble)

		assert.Equal(t, strings.Join(lines[0:5], "\n"), part1)
		assert.Equal(t, preamble+strings.Join(lines[5:10], "\n"), part2)
	})

	t.Run("line counts add up", func(t *testing.T) {
		for _, n := range []int{2, 3, 201, 250, 401} {
			lines := numberedLines(n)
			part1, part2 := Subdivide(strings.Join(lines, "\n"), Midpoint, "")

			p1 := strings.Split(part1, "\n")
			p2 := strings.Split(part2, "\n")
			assert.Len(t, p1, n/2, "n=%d", n)
			assert.Equal(t, n, len(p1)+len(p2), "n=%d", n)
		}
	})

	t.Run("preamble precedes the line at the cut", func(t *testing.T) {
		lines := numberedLines(7)
		preamble := "INSERT INTO sys_user (user_id, name)\nVALUES\n"

		_, part2 := Subdivide(strings.Join(lines, "\n"), Midpoint, preamble)

		require.True(t, strings.HasPrefix(part2, preamble))
		rest := strings.TrimPrefix(part2, preamble)
		assert.Equal(t, lines[3], strings.Split(rest, "\n")[0])
	})

	t.Run("split func result is clamped", func(t *testing.T) {
		part1, part2 := Subdivide("a\nb", func([]string) int { return 99 }, "P")
		assert.Equal(t, "a\nb", part1)
		assert.Equal(t, "P", part2)

		part1, part2 = Subdivide("a\nb", func([]string) int { return -1 }, "P")
		assert.Equal(t, "", part1)
		assert.Equal(t, "Pa\nb", part2)
	})
}

func TestSplitFuncs(t *testing.T) {
	t.Run("marker", func(t *testing.T) {
		lines := []string{"-- suppliers", "('USER_59', 'a'),", "('USER_84', 'b'),", "('USER_85', 'c'),", "('USER_110', 'd');"}
		assert.Equal(t, 3, AtMarker("USER_85")(lines))
		assert.Equal(t, Midpoint(lines), AtMarker("USER_999")(lines))
		assert.Equal(t, Midpoint(lines), AtMarker("")(lines))

		// A marker on the first line would leave part 1 empty.
		assert.Equal(t, Midpoint(lines), AtMarker("-- suppliers")(lines))
		repeated := []string{"('USER_1'),", "('USER_2'),", "('USER_1'),", "('USER_3');"}
		assert.Equal(t, 2, AtMarker("USER_1")(repeated))
	})

	t.Run("statement", func(t *testing.T) {
		lines := []string{"INSERT INTO x VALUES", "(1,", "  'a'),", "  'b'),", "(2, 'c');"}
		assert.Equal(t, 1, AtStatement(lines))

		aligned := []string{"INSERT INTO x VALUES", "(1),", "(2),", "(3),", "(4);"}
		assert.Equal(t, 2, AtStatement(aligned))

		none := []string{"a", "b", "c", "d"}
		assert.Equal(t, 2, AtStatement(none))
	})
}

func TestHeader_Format(t *testing.T) {
	h := Header{Prefix: "BTC core", Database: "btc_core"}
	want := "-- ==============================================\n" +
		"-- BTC core - Users\n" +
		"-- ==============================================\n" +
		"\n" +
		"USE btc_core;\n" +
		"\n"
	assert.Equal(t, want, h.Format("Users"))

	bare := Header{}
	assert.NotContains(t, bare.Format("Users"), "USE")
	assert.Contains(t, bare.Format("Users"), "-- Users\n")

	custom := Header{Database: "db", Template: "/* {title} @ {database} */\n"}
	assert.Equal(t, "/* Users @ db */\n", custom.Format("Users"))
}

func TestRender_RoundTrip(t *testing.T) {
	h := Header{Prefix: "BTC", Database: "btc_core"}
	span, err := Locate(createDoc, "CREATE TABLE t", ") COMMENT 't';", 0)
	require.NoError(t, err)

	body := Extract(createDoc, span)
	text := Render(h, "Tables", body)

	require.True(t, strings.HasPrefix(text, h.Format("Tables")))
	assert.Equal(t, body, strings.TrimPrefix(text, h.Format("Tables")))
	assert.Equal(t, createDoc[span.Start:span.End], strings.TrimPrefix(text, h.Format("Tables")))
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name      string
		spec      Spec
		errSubstr string
	}{
		{name: "valid", spec: Spec{Label: "a", Start: "s", End: "e"}},
		{name: "eof needs no end", spec: Spec{Label: "a", Start: "s", EndMode: EndOfDocument}},
		{name: "missing label", spec: Spec{Start: "s", End: "e"}, errSubstr: "label is required"},
		{name: "missing start", spec: Spec{Label: "a", End: "e"}, errSubstr: "start marker is required"},
		{name: "missing end", spec: Spec{Label: "a", Start: "s"}, errSubstr: "end marker is required"},
		{name: "marker policy without marker", spec: Spec{Label: "a", Start: "s", End: "e", Split: SplitAtMarker}, errSubstr: "split_marker"},
		{name: "negative limit", spec: Spec{Label: "a", Start: "s", End: "e", MaxLines: -1}, errSubstr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestParseEnums(t *testing.T) {
	m, err := ParseEndMode("EXCLUSIVE")
	require.NoError(t, err)
	assert.Equal(t, EndExclusive, m)

	_, err = ParseEndMode("sideways")
	assert.Error(t, err)

	a, err := ParseAnchor("previous")
	require.NoError(t, err)
	assert.Equal(t, AnchorPrevious, a)

	var p SplitPolicy
	require.NoError(t, p.UnmarshalText([]byte("statement")))
	assert.Equal(t, SplitAtStatement, p)
	assert.Error(t, p.UnmarshalText([]byte("bytes")))

	text, err := SplitAtMarker.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "marker", string(text))
}
