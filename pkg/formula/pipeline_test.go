package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFormula_AggregationOnly(t *testing.T) {
	tests := []struct {
		agg  Aggregation
		want string
	}{
		{AggNone, "column"},
		{AggSum, "SUM(column)"},
		{AggAvg, "AVG(column)"},
		{AggCount, "COUNT(column)"},
		{AggMin, "MIN(column)"},
		{AggMax, "MAX(column)"},
	}

	for _, tt := range tests {
		t.Run(string(tt.agg), func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFormula(tt.agg, nil, "column"))
		})
	}
}

func TestBuildFormula_Steps(t *testing.T) {
	tests := []struct {
		name   string
		agg    Aggregation
		steps  []TransformStep
		source string
		want   string
	}{
		{
			name:   "sum then multiply",
			agg:    AggSum,
			steps:  []TransformStep{{OpMultiply, "100"}},
			source: "x",
			want:   "(SUM(x)) * 100",
		},
		{
			name:   "literal divisor",
			agg:    AggNone,
			steps:  []TransformStep{{OpDivideBy, "1000000"}},
			source: "revenue_micros",
			want:   "(revenue_micros) / 1000000",
		},
		{
			name:   "field divisor",
			agg:    AggNone,
			steps:  []TransformStep{{OpDivideBy, "clicks"}},
			source: "spend",
			want:   "(spend) / NULLIF(clicks, 0)",
		},
		{
			name:   "decimal literal divisor",
			agg:    AggNone,
			steps:  []TransformStep{{OpDivideBy, "2.5"}},
			source: "x",
			want:   "(x) / 2.5",
		},
		{
			name:   "negative divisor is not a bare number",
			agg:    AggNone,
			steps:  []TransformStep{{OpDivideBy, "-2"}},
			source: "x",
			want:   "(x) / NULLIF(-2, 0)",
		},
		{
			name:   "round and coalesce",
			agg:    AggAvg,
			steps:  []TransformStep{{OpRound, "2"}, {OpCoalesce, "0"}},
			source: "ctr",
			want:   "COALESCE(ROUND(AVG(ctr), 2), 0)",
		},
		{
			name:   "cast date ignores value",
			agg:    AggNone,
			steps:  []TransformStep{{OpCastDate, "ignored"}},
			source: "segments_date",
			want:   "CAST(segments_date AS DATE)",
		},
		{
			name:   "extract defaults to year",
			agg:    AggNone,
			steps:  []TransformStep{{OpCastDate, ""}, {OpExtractPart, ""}},
			source: "d",
			want:   "EXTRACT(YEAR FROM CAST(d AS DATE))",
		},
		{
			name:   "extract month",
			agg:    AggMax,
			steps:  []TransformStep{{OpExtractPart, "MONTH"}},
			source: "d",
			want:   "EXTRACT(MONTH FROM MAX(d))",
		},
		{
			name:   "empty source falls back",
			agg:    AggSum,
			source: "",
			want:   "SUM(column)",
		},
		{
			name:   "malformed value propagates",
			agg:    AggNone,
			steps:  []TransformStep{{OpMultiply, "abc"}},
			source: "x",
			want:   "(x) * abc",
		},
		{
			name:   "unknown operation skipped",
			agg:    AggNone,
			steps:  []TransformStep{{Operation("SQUARE"), "2"}, {OpRound, "1"}},
			source: "x",
			want:   "ROUND(x, 1)",
		},
		{
			name:   "chained",
			agg:    AggSum,
			steps:  []TransformStep{{OpDivideBy, "1000000"}, {OpDivideBy, "clicks"}, {OpRound, "2"}},
			source: "cost_micros",
			want:   "ROUND(((SUM(cost_micros)) / 1000000) / NULLIF(clicks, 0), 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFormula(tt.agg, tt.steps, tt.source))
		})
	}
}

func TestBuildFormula_DivideNullIfProperty(t *testing.T) {
	values := []string{"0", "1", "10", "3.14", "1000000", "clicks", "impressions", "1e3", "-5", " 2", "a1", ".5"}
	for _, v := range values {
		f := BuildFormula(AggNone, []TransformStep{{OpDivideBy, v}}, "x")
		if IsNumericLiteral(v) {
			assert.NotContains(t, f, "NULLIF", "literal %q", v)
		} else {
			assert.Contains(t, f, "NULLIF", "field reference %q", v)
		}
	}
}

func TestDescribePipeline(t *testing.T) {
	tests := []struct {
		name   string
		agg    Aggregation
		steps  []TransformStep
		source string
		want   string
	}{
		{
			name:   "average then round",
			agg:    AggAvg,
			steps:  []TransformStep{{OpRound, "2"}},
			source: "ctr",
			want:   `Calculate the average of "ctr", then round to 2 decimal places.`,
		},
		{
			name:   "raw with no steps",
			agg:    AggNone,
			source: "x",
			want:   "",
		},
		{
			name:   "single aggregation clause",
			agg:    AggSum,
			source: "spend",
			want:   `Add up all "spend" values.`,
		},
		{
			name:   "raw with a step",
			agg:    AggNone,
			steps:  []TransformStep{{OpDivideBy, "1000000"}},
			source: "revenue_micros",
			want:   `Take the raw value of "revenue_micros", then divide the result by 1000000.`,
		},
		{
			name:   "field divisor",
			agg:    AggSum,
			steps:  []TransformStep{{OpDivideBy, "clicks"}},
			source: "spend",
			want:   `Add up all "spend" values, then divide the result by "clicks" (left empty when "clicks" is zero).`,
		},
		{
			name:   "three clauses",
			agg:    AggMax,
			steps:  []TransformStep{{OpCoalesce, ""}, {OpMultiply, "100"}},
			source: "",
			want:   `Find the highest "column" value, then replace missing values with 0, then multiply the result by 100.`,
		},
		{
			name:   "dates",
			agg:    AggNone,
			steps:  []TransformStep{{OpCastDate, ""}, {OpExtractPart, ""}},
			source: "d",
			want:   `Take the raw value of "d", then convert the result to a date, then extract the year from the date.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DescribePipeline(tt.agg, tt.steps, tt.source))
		})
	}
}

func TestDescribeAndFormulaAgreeOnDefaults(t *testing.T) {
	p := Pipeline{Source: "x", Aggregation: AggNone, Steps: []TransformStep{
		{OpMultiply, ""}, {OpRound, ""}, {OpExtractPart, " "},
	}}

	assert.Equal(t, "EXTRACT(YEAR FROM ROUND((x) * 1, 0))", p.Formula())
	desc := p.Description()
	assert.Contains(t, desc, "multiply the result by 1")
	assert.Contains(t, desc, "round to the nearest whole number")
	assert.Contains(t, desc, "extract the year")
}

func TestPipelineWithStepDoesNotMutate(t *testing.T) {
	base := Pipeline{Source: "x", Aggregation: AggSum, Steps: []TransformStep{{OpMultiply, "2"}}}
	next := base.WithStep(TransformStep{OpRound, "1"})

	require.Len(t, base.Steps, 1)
	require.Len(t, next.Steps, 2)
	assert.Equal(t, "ROUND((SUM(x)) * 2, 1)", next.Formula())

	removed := next.WithoutStep(0)
	assert.Equal(t, "ROUND(SUM(x), 1)", removed.Formula())
	assert.Len(t, next.Steps, 2)
	assert.Equal(t, next, next.WithoutStep(5))
}

func TestPipelineValidate(t *testing.T) {
	p := Pipeline{
		Aggregation: AggSum,
		Steps: []TransformStep{
			{OpMultiply, "abc"},
			{OpDivideBy, "0"},
			{OpRound, "1.5"},
			{OpExtractPart, "fortnight"},
			{Operation("SQUARE"), ""},
			{OpCoalesce, "0"},
		},
	}

	issues := p.Validate()
	require.Len(t, issues, 6)
	assert.Equal(t, 0, issues[0].Step)
	assert.Contains(t, issues[0].String(), "no source column")
	assert.Equal(t, "step 1: multiplier \"abc\" is not a number", issues[1].String())
	assert.Contains(t, issues[2].Message, "literal zero")
	assert.Contains(t, issues[3].Message, "not an integer")
	assert.Contains(t, issues[4].Message, "unknown date part")
	assert.Contains(t, issues[5].Message, "step ignored")

	clean := Pipeline{Source: "x", Aggregation: AggAvg, Steps: []TransformStep{{OpRound, "2"}}}
	assert.Empty(t, clean.Validate())
}

func TestNeverPanics(t *testing.T) {
	for _, agg := range append(Aggregations(), Aggregation(""), Aggregation("MEDIAN")) {
		for _, op := range append(Operations(), Operation("")) {
			for _, v := range []string{"", "0", "x", "1.5"} {
				steps := []TransformStep{{op, v}}
				assert.NotPanics(t, func() {
					_ = BuildFormula(agg, steps, "")
					_ = DescribePipeline(agg, steps, "")
				})
				d := DescribePipeline(agg, steps, "c")
				if d != "" {
					assert.True(t, strings.HasSuffix(d, "."), "description %q", d)
				}
			}
		}
	}
}
