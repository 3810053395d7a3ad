package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Defaults(t *testing.T) {
	table, err := New(DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"hours with surrounding text", "請問營業時間?", hoursReply, true},
		{"hours exact", "服務時間", hoursReply, true},
		{"contact", "想聯繫客服", contactReply, true},
		{"help ascii", "need help!", helpReply, true},
		{"case sensitive", "HELP", "", false},
		{"no keyword", "我要退款", "", false},
		{"empty text", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Match(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_FirstRuleWins(t *testing.T) {
	table, err := New([]Rule{
		{Keyword: "退款", Response: "refund"},
		{Keyword: "退", Response: "generic"},
	})
	require.NoError(t, err)

	got, ok := table.Match("我要退款")
	require.True(t, ok)
	assert.Equal(t, "refund", got)

	got, ok = table.Match("退貨")
	require.True(t, ok)
	assert.Equal(t, "generic", got)
}

func TestNew_RejectsEmptyKeyword(t *testing.T) {
	_, err := New([]Rule{{Keyword: "a", Response: "x"}, {Keyword: "", Response: "y"}})
	assert.ErrorIs(t, err, ErrEmptyKeyword)
}

func TestNew_CopiesRules(t *testing.T) {
	rules := []Rule{{Keyword: "a", Response: "x"}}
	table, err := New(rules)
	require.NoError(t, err)

	rules[0].Response = "mutated"
	got, _ := table.Match("a")
	assert.Equal(t, "x", got)
	assert.Equal(t, 1, table.Len())
}

func TestMatch_NilTable(t *testing.T) {
	var table *Table
	_, ok := table.Match("anything")
	assert.False(t, ok)
	assert.Zero(t, table.Len())
}
