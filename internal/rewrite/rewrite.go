// Package rewrite applies ordered regular-expression substitutions to a SQL
// dump before it is segmented.
//
// Rules are written so that a second application is a no-op, for example a
// pattern that tolerates an already injected column:
//
//	(\('USER_\d+', 'TENANT_SUPPLIER', 'DEPT_SUPPLIER_RAW', )('POS_SUPPLIER_MATERIAL', )?(['"])
//
// Replacements use Go's regexp expansion syntax ($1, ${name}).
package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one configured substitution.
type Rule struct {
	Name    string `koanf:"name" yaml:"name"`
	Pattern string `koanf:"pattern" yaml:"pattern"`
	Replace string `koanf:"replace" yaml:"replace"`
}

// Count reports how many matches a rule replaced.
type Count struct {
	Rule    string
	Matches int
}

// Rewriter is a compiled, ordered rule set.
type Rewriter struct {
	rules []compiled
}

type compiled struct {
	name    string
	re      *regexp.Regexp
	replace string
}

// Compile validates and compiles rules in order.
func Compile(rules []Rule) (*Rewriter, error) {
	rw := &Rewriter{rules: make([]compiled, 0, len(rules))}
	for i, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = fmt.Sprintf("rewrite[%d]", i)
		}
		if r.Pattern == "" {
			return nil, fmt.Errorf("%s: pattern is required", name)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid pattern: %w", name, err)
		}
		rw.rules = append(rw.rules, compiled{name: name, re: re, replace: r.Replace})
	}
	return rw, nil
}

// Len returns the number of rules.
func (rw *Rewriter) Len() int { return len(rw.rules) }

// Apply runs every rule over text in order and returns the rewritten text
// with per-rule match counts.
func (rw *Rewriter) Apply(text string) (string, []Count) {
	counts := make([]Count, 0, len(rw.rules))
	for _, r := range rw.rules {
		n := len(r.re.FindAllStringIndex(text, -1))
		if n > 0 {
			text = r.re.ReplaceAllString(text, r.replace)
		}
		counts = append(counts, Count{Rule: r.name, Matches: n})
	}
	return text, counts
}
