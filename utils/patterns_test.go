package utils

import "testing"

func TestShouldInclude(t *testing.T) {
	matcher := NewPatternMatcher(nil, nil)
	if !matcher.ShouldInclude("file.txt") {
		t.Fatal("expected include by default")
	}
	matcher = NewPatternMatcher([]string{"*.sas"}, nil)
	if matcher.ShouldInclude("notes.txt") {
		t.Fatal("should not include unmatched include pattern")
	}
	if !matcher.ShouldInclude("jobs/nightly/load.sas") {
		t.Fatal("include pattern should match base name")
	}
	matcher = NewPatternMatcher(nil, []string{"archive/**"})
	if matcher.ShouldInclude("archive/2019/old.sas") {
		t.Fatal("should exclude matching exclude pattern")
	}
	if !matcher.ShouldInclude("current/new.sas") {
		t.Fatal("should include when exclude does not match")
	}
	matcher = NewPatternMatcher([]string{"./macros/**/*.sas"}, []string{"*_bak.sas"})
	if !matcher.ShouldInclude("macros/util/dates.sas") {
		t.Fatal("should match nested include")
	}
	if matcher.ShouldInclude("macros/util/dates_bak.sas") {
		t.Fatal("exclude should win over include")
	}
}

func TestInvalidGlobIgnored(t *testing.T) {
	matcher := NewPatternMatcher([]string{"[unclosed"}, nil)
	if !matcher.ShouldInclude("a.sas") {
		t.Fatal("invalid include globs are dropped")
	}
}

func TestNilMatcher(t *testing.T) {
	var m *PatternMatcher
	if !m.ShouldInclude("x") {
		t.Fatal("nil matcher includes everything")
	}
}
