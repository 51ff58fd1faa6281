package code_analyzer

import (
	"regexp"
	"strings"

	"github.com/studyboard/studyverify/code_analyzer/models"
)

// Rule is a single named pattern evaluated against a scope of text.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Matches reports whether the rule matches anywhere in text.
func (r Rule) Matches(text string) bool {
	return r.Pattern.MatchString(text)
}

// IncompleteRules detect template placeholders the learner has not replaced yet.
var IncompleteRules = []Rule{
	{"empty-initialization", regexp.MustCompile(`(?m)^[ \t]*[A-Za-z_]\w*[ \t]*=[ \t]*(?:""|''|0|0\.0|\[\]|\{\}|None)[ \t]*#.*$`)},
	{"bare-pass", regexp.MustCompile(`(?m)^[ \t]*pass[ \t]*(?:#.*)?$`)},
	{"not-implemented", regexp.MustCompile(`(?m)^[ \t]*raise[ \t]+NotImplementedError\b`)},
	{"ellipsis-body", regexp.MustCompile(`(?m)^[ \t]*\.\.\.[ \t]*(?:#.*)?$`)},
	{"empty-return", regexp.MustCompile(`(?m)^[ \t]*return[ \t]+(?:""|''|\[\]|\{\}|\(\)|None|set\(\)|dict\(\)|list\(\))[ \t]*(?:#.*)?$`)},
	{"template-placeholder", regexp.MustCompile(`(?m)^[ \t]*["'][A-Za-z_]\w*["'][ \t]*:[ \t]*(?:None|0|""|''|\[\]|\{\})[ \t]*,?[ \t]*#.*$`)},
}

// CompleteRules detect signs of real computation in return statements.
var CompleteRules = []Rule{
	{"return-arithmetic", regexp.MustCompile(`(?m)^[ \t]*return[ \t]+.*[A-Za-z_]\w*[ \t]*(?:\+|-|\*\*?|//?|%)[ \t]*[\w("'\[]`)},
	{"return-string-method", regexp.MustCompile(`(?m)^[ \t]*return[ \t]+.*\.(?:upper|lower|strip|lstrip|rstrip|split|join|replace|title|capitalize|format|startswith|endswith)\(`)},
	{"return-comprehension", regexp.MustCompile(`(?m)^[ \t]*return[ \t]+.*\bfor\b.+\bin\b`)},
	{"return-boolean", regexp.MustCompile(`(?m)^[ \t]*return[ \t]+(?:True|False)\b`)},
	{"return-fstring", regexp.MustCompile(`(?m)^[ \t]*return[ \t]+f["']`)},
}

// stringAssignment is the secondary per-function signal: a non-empty string literal bound to a name.
var stringAssignment = regexp.MustCompile(`(?m)^[ \t]*[A-Za-z_]\w*[ \t]*=[ \t]*f?(?:"[^"\n]+"|'[^'\n]+')`)

var (
	DefaultScaffoldPrefixes = []string{"test_", "check_", "run_"}
	DefaultEntryPoint       = "main"
)

// Classifier decides whether an exercise file holds a genuine implementation.
type Classifier struct {
	extractor        FunctionExtractor
	scaffoldPrefixes []string
	entryPoint       string
}

// NewClassifier creates a classifier. Empty prefixes or entry point fall back to the defaults.
func NewClassifier(extractor FunctionExtractor, scaffoldPrefixes []string, entryPoint string) *Classifier {
	if extractor == nil {
		extractor = NewRegexExtractor()
	}
	if len(scaffoldPrefixes) == 0 {
		scaffoldPrefixes = DefaultScaffoldPrefixes
	}
	if entryPoint == "" {
		entryPoint = DefaultEntryPoint
	}
	return &Classifier{
		extractor:        extractor,
		scaffoldPrefixes: scaffoldPrefixes,
		entryPoint:       entryPoint,
	}
}

// Classify runs both rule sets over the whole file, then judges each top-level function.
func (c *Classifier) Classify(content []byte) models.ClassificationResult {
	text := string(content)

	var result models.ClassificationResult
	result.MatchedIncomplete = matchingRules(IncompleteRules, text)
	result.MatchedComplete = matchingRules(CompleteRules, text)
	result.IncompleteMatches = len(result.MatchedIncomplete)
	result.CompleteMatches = len(result.MatchedComplete)

	for _, span := range c.extractor.Extract(content) {
		verdict := models.FunctionVerdict{Name: span.Name, BodyText: span.BodyText}

		if c.isScaffolding(span.Name) {
			verdict.Skipped = true
			result.Functions = append(result.Functions, verdict)
			continue
		}

		verdict.IncompleteMatches = len(matchingRules(IncompleteRules, span.BodyText))
		verdict.CompleteMatches = len(matchingRules(CompleteRules, span.BodyText))
		verdict.StringAssignment = stringAssignment.MatchString(span.BodyText)
		verdict.Complete = (verdict.CompleteMatches > 0 && verdict.IncompleteMatches == 0) || verdict.StringAssignment

		result.TotalFunctions++
		if verdict.Complete {
			result.CompletedFunctions++
		}
		result.Functions = append(result.Functions, verdict)
	}

	// One stray placeholder is tolerated once some function is implemented on its own.
	result.IsComplete = (result.CompleteMatches > 0 && result.IncompleteMatches == 0) ||
		(result.CompletedFunctions > 0 && result.IncompleteMatches < 2)

	return result
}

func (c *Classifier) isScaffolding(name string) bool {
	if name == c.entryPoint {
		return true
	}
	for _, prefix := range c.scaffoldPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func matchingRules(rules []Rule, text string) []string {
	var names []string
	for _, rule := range rules {
		if rule.Matches(text) {
			names = append(names, rule.Name)
		}
	}
	return names
}
