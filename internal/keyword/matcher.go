package keyword

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyKeyword 表示规则的关键字为空（空串会匹配任何文本）
var ErrEmptyKeyword = errors.New("keyword must not be empty")

// Rule 是一条关键字规则：文本包含 Keyword 时回复 Response
type Rule struct {
	Keyword  string `yaml:"keyword"`
	Response string `yaml:"response"`
}

// Table 是按顺序匹配的关键字表，构造后只读
type Table struct {
	rules []Rule
}

// New 按给定顺序构造关键字表
func New(rules []Rule) (*Table, error) {
	copied := make([]Rule, len(rules))
	for i, r := range rules {
		if r.Keyword == "" {
			return nil, fmt.Errorf("rule %d: %w", i, ErrEmptyKeyword)
		}
		copied[i] = r
	}
	return &Table{rules: copied}, nil
}

// Match 返回第一条关键字出现在 text 中的规则的回复。
// 不做大小写或空白归一化。
func (t *Table) Match(text string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, r := range t.rules {
		if strings.Contains(text, r.Keyword) {
			return r.Response, true
		}
	}
	return "", false
}

// Rules 返回规则副本
func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len 返回规则数量
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}
