package knowledge

import (
	"regexp"

	"github.com/maestro-labs/mcae/pkg/capability"
)

type ArtifactType = capability.ArtifactType

const (
	ArtifactSolution       = capability.ArtifactSolution
	ArtifactExplanation    = capability.ArtifactExplanation
	ArtifactRecommendation = capability.ArtifactRecommendation
	ArtifactConfiguration  = capability.ArtifactConfiguration
	ArtifactProcedure      = capability.ArtifactProcedure
	ArtifactCode           = capability.ArtifactCode
	ArtifactDebugging      = capability.ArtifactDebugging
	ArtifactImportantNote  = capability.ArtifactImportantNote
	ArtifactGeneral        = capability.ArtifactGeneral
)

// patternGroup is one weighted, categorized family of regexes. A group
// contributes at most once to the score regardless of how many of its
// patterns match (spec §4.2 step 2). Patterns are compiled once at
// package init, following the teacher's inline regexp.MustCompile idiom
// (pkg/architect/spec2stories.go, pkg/knowledge/parser.go) generalized
// to named, reusable pattern groups instead of ad-hoc call-site regexes.
type patternGroup struct {
	name     string
	category ArtifactType
	weight   int
	patterns []*regexp.Regexp
}

// categoryPrecedence breaks ties when two categories have the same
// group-match count (spec §4.2 step 5).
var categoryPrecedence = map[ArtifactType]int{
	ArtifactSolution:       0,
	ArtifactConfiguration:  1,
	ArtifactCode:           2,
	ArtifactDebugging:      3,
	ArtifactExplanation:    4,
	ArtifactRecommendation: 5,
	ArtifactProcedure:      6,
	ArtifactImportantNote:  7,
	ArtifactGeneral:        8,
}

var patternGroups = []patternGroup{
	{
		name:     "solutions",
		category: ArtifactSolution,
		weight:   3,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bthe (?:fix|solution) (?:is|was)\b`),
			regexp.MustCompile(`(?i)\bsolution:\s`),
			regexp.MustCompile(`(?i)\bfix:\s`),
			regexp.MustCompile(`(?i)\bthis (?:fixes|resolves|solves)\b`),
			regexp.MustCompile(`(?i)\bworks? (?:now|correctly)\b`),
		},
	},
	{
		name:     "explanations",
		category: ArtifactExplanation,
		weight:   2,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bthis (?:means|happens because|is because)\b`),
			regexp.MustCompile(`(?i)\bthe reason (?:is|for this)\b`),
			regexp.MustCompile(`(?i)\bin other words\b`),
			regexp.MustCompile(`(?i)\bwhat (?:is|are)\s+\w+\??\s*$`),
		},
	},
	{
		name:     "recommendations",
		category: ArtifactRecommendation,
		weight:   2,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:i |we )?recommend\b`),
			regexp.MustCompile(`(?i)\byou should (?:use|consider|avoid)\b`),
			regexp.MustCompile(`(?i)\bit(?:'s| is) (?:better|preferable) to\b`),
			regexp.MustCompile(`(?i)\bbest practice\b`),
		},
	},
	{
		name:     "configurations",
		category: ArtifactConfiguration,
		weight:   3,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bset\s+\w+\s*=`),
			regexp.MustCompile(`(?i)\bconfigur(?:e|ation|ing)\b`),
			regexp.MustCompile(`(?i)\benvironment variable\b`),
			regexp.MustCompile(`(?i)\b\.ya?ml\b|\.env\b|\.toml\b|\.json\b`),
		},
	},
	{
		name:     "procedures",
		category: ArtifactProcedure,
		weight:   2,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^\s*\d+\.\s`),
			regexp.MustCompile(`(?i)\bstep\s+\d+\b`),
			regexp.MustCompile(`(?i)\bfirst,.*then\b`),
		},
	},
	{
		name:     "code_examples",
		category: ArtifactCode,
		weight:   3,
		patterns: []*regexp.Regexp{
			regexp.MustCompile("```"),
			regexp.MustCompile(`(?m)^\s{4,}\S`),
			regexp.MustCompile(`\bfunc \w+\(|\bdef \w+\(|\bclass \w+\b`),
		},
	},
	{
		name:     "errors_debugging",
		category: ArtifactDebugging,
		weight:   3,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\berror:|\bexception\b|\bstack trace\b|\btraceback\b`),
			regexp.MustCompile(`(?i)\bdebugg(?:ing|ed)\b`),
			regexp.MustCompile(`(?i)\bfailed (?:to|with)\b`),
			regexp.MustCompile(`(?i)\bpanic:\s`),
		},
	},
	{
		name:     "important_notes",
		category: ArtifactImportantNote,
		weight:   2,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bimportant:|\bnote:|\bwarning:|\bcaution:`),
			regexp.MustCompile(`(?i)\bmust (?:not|never|always)\b`),
		},
	},
}

// technicalTerms is the vocabulary used for the +6 "technical term"
// bonus (spec §4.2 step 3) and for tag extraction (spec §4.2 step 8).
var technicalTerms = []string{
	"api", "database", "schema", "migration", "endpoint", "token", "cache",
	"config", "configuration", "docker", "kubernetes", "sqlite", "postgres",
	"goroutine", "channel", "mutex", "interface", "struct", "regex",
	"json", "yaml", "http", "tls", "auth", "oauth", "webhook", "queue",
	"retry", "timeout", "latency", "throughput", "index", "transaction",
}

var (
	headerLineRe    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	solutionPhraseRe = regexp.MustCompile(`(?i)(?:solution|fix):\s*(.{1,80})`)
	codeBlockRe      = regexp.MustCompile("```")
	numberedStepsRe  = regexp.MustCompile(`(?m)^\s*\d+\.\s`)
)
