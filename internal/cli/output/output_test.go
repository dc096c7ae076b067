package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		err  bool
	}{
		{"", ModeAuto, false},
		{"TEXT", ModeText, false},
		{"md", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		tty  bool
		want Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
	}
	for _, tt := range tests {
		r, _, _ := newTestRenderer(tt.mode, tt.tty)
		assert.Equal(t, tt.want, r.EffectiveMode())
	}
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
}

func TestHeaderAndKeyValue(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)
	r.Header(2, "Columns")
	r.KeyValue("Rows", "20")
	assert.Equal(t, "## Columns\n\n- **Rows**: 20\n", out.String())

	r, out, _ = newTestRenderer(ModeText, false)
	r.Header(1, "Columns")
	r.KeyValue("Rows", "20")
	assert.Contains(t, out.String(), "Columns")
	assert.Contains(t, out.String(), "Rows: 20")
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestTable(t *testing.T) {
	rows := [][]any{{"US", 1.5, nil}, {"GB", int64(2), "x"}}

	r, out, _ := newTestRenderer(ModeMarkdown, false)
	r.Table([]string{"Geo", "Value", "Note"}, rows)
	md := out.String()
	assert.Contains(t, md, "| Geo | Value | Note |")
	assert.Contains(t, md, "| US | 1.5 | NULL |")

	r, out, _ = newTestRenderer(ModeText, false)
	r.Table([]string{"Geo", "Value", "Note"}, rows)
	assert.Contains(t, out.String(), "(2 rows)")
	assert.Contains(t, out.String(), "Geo")

	r, out, _ = newTestRenderer(ModeText, false)
	r.Table([]string{"A"}, nil)
	assert.Equal(t, "(0 rows)\n", out.String())
}

func TestJSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"rows": 3}))
	var got map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 3, got["rows"])
}

func TestWarnf(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)
	r.Warnf("only %d spend column", 1)
	assert.Empty(t, out.String())
	assert.Equal(t, "warning: only 1 spend column\n", errOut.String())
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### T", FormatHeader(3, "T"))
	assert.Equal(t, "- **k**: v", FormatKeyValue("k", "v"))
	assert.Equal(t, "```sql\nSELECT 1\n```", FormatCodeBlock("sql", "SELECT 1\n"))
	assert.Equal(t, "Vif Report", Title("vif report"))
	assert.Equal(t, "NULL", FormatValue(nil))
	assert.Equal(t, "0.25", FormatValue(0.25))
	assert.Equal(t, "abc", FormatValue([]byte("abc")))
	assert.True(t, strings.HasPrefix(FormatValue(int64(7)), "7"))
}
