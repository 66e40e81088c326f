package features

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/upb/llm-router/models"
)

// Config holds configuration for the feature extractor
type Config struct {
	// MaxContextTurns bounds how many recent turns contribute to features
	MaxContextTurns int
}

// DefaultConfig returns the default extractor configuration
func DefaultConfig() Config {
	return Config{
		MaxContextTurns: 6,
	}
}

// Extractor derives QueryFeatures from a prompt and its bounded context.
// Pure and reproducible: no I/O, no randomness, no clock. Identical input
// always yields identical output.
type Extractor struct {
	config Config
}

// NewExtractor creates a feature extractor
func NewExtractor(config Config) *Extractor {
	if config.MaxContextTurns <= 0 {
		config.MaxContextTurns = DefaultConfig().MaxContextTurns
	}
	return &Extractor{config: config}
}

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile(`(?m)^\s*(func |def |class |import |package |#include|public |const |let |var |fn |if \(|for \()`)

	// vaguePhrases signal an underspecified request
	vaguePhrases = []string{
		"something", "somehow", "maybe", "not sure", "etc",
		"whatever", "anything", "stuff", "things like",
	}

	// toolPhrases signal the request likely needs tool use
	toolPhrases = []string{
		"search the web", "browse", "look up", "fetch", "download",
		"run this", "execute", "call the api", "current weather",
		"latest news", "today's",
	}
)

// domainKeywords maps indicator keywords to the domains they suggest.
// Keys are matched case-insensitively on word boundaries.
var domainKeywords = map[string]string{
	"function":  "programming",
	"bug":       "programming",
	"compile":   "programming",
	"code":      "programming",
	"algorithm": "programming",
	"sql":       "programming",
	"api":       "programming",
	"translate": "translation",
	"poem":      "creative-writing",
	"story":     "creative-writing",
	"essay":     "writing",
	"summarize": "summarization",
	"summary":   "summarization",
	"equation":  "math",
	"integral":  "math",
	"prove":     "math",
	"theorem":   "math",
	"contract":  "legal",
	"diagnosis": "medical",
	"symptom":   "medical",
}

// Extract computes the difficulty feature vector for a prompt plus its
// recent conversation turns. Only the last MaxContextTurns turns are
// considered.
func (e *Extractor) Extract(prompt string, turns []string) models.QueryFeatures {
	if len(turns) > e.config.MaxContextTurns {
		turns = turns[len(turns)-e.config.MaxContextTurns:]
	}

	combined := prompt
	if len(turns) > 0 {
		combined = strings.Join(turns, "\n") + "\n" + prompt
	}
	lower := strings.ToLower(combined)

	codeLines := countCodeLines(combined)

	return models.QueryFeatures{
		TokenEstimate:     estimateTokens(combined),
		Complexity:        complexity(combined),
		HasCode:           codeLines > 0,
		CodeLines:         codeLines,
		DomainKeywords:    matchDomainKeywords(lower),
		NeedsTools:        containsAny(lower, toolPhrases),
		ConversationDepth: len(turns),
		Ambiguity:         ambiguity(prompt),
	}
}

// estimateTokens approximates token count with the ~4 chars/token rule
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

// complexity scores structural complexity in [0,1] from length, sentence
// count and nesting markers
func complexity(text string) float64 {
	score := 0.0

	// Length contributes up to 0.4
	length := float64(len(text))
	score += math.Min(length/4000.0, 1.0) * 0.4

	// Sentence count contributes up to 0.3
	sentences := float64(strings.Count(text, ".") + strings.Count(text, "?") + strings.Count(text, "!"))
	score += math.Min(sentences/20.0, 1.0) * 0.3

	// Structural markers (lists, clauses, code fences) contribute up to 0.3
	markers := float64(strings.Count(text, "\n- ") +
		strings.Count(text, "\n* ") +
		strings.Count(text, ";") +
		strings.Count(text, "```"))
	score += math.Min(markers/10.0, 1.0) * 0.3

	return clamp01(score)
}

// countCodeLines counts lines inside fenced blocks plus lines matching
// common code patterns outside them
func countCodeLines(text string) int {
	count := 0
	remainder := text

	for _, block := range fencedCodeRe.FindAllString(text, -1) {
		inner := strings.Trim(block, "`")
		lines := strings.Split(strings.TrimSpace(inner), "\n")
		// First line of a fence is usually the language tag
		if len(lines) > 1 {
			count += len(lines) - 1
		} else {
			count += len(lines)
		}
		remainder = strings.Replace(remainder, block, "", 1)
	}

	count += len(inlineCodeRe.FindAllString(remainder, -1))
	return count
}

// matchDomainKeywords returns the sorted set of matched indicator keywords
func matchDomainKeywords(lower string) []string {
	seen := make(map[string]struct{})
	for keyword := range domainKeywords {
		if containsWord(lower, keyword) {
			seen[keyword] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	matched := make([]string, 0, len(seen))
	for k := range seen {
		matched = append(matched, k)
	}
	sort.Strings(matched)
	return matched
}

// ambiguity scores underspecification in [0,1]: vague phrasing, very short
// prompts and trailing open questions raise it
func ambiguity(prompt string) float64 {
	lower := strings.ToLower(prompt)
	score := 0.0

	for _, phrase := range vaguePhrases {
		if strings.Contains(lower, phrase) {
			score += 0.15
		}
	}

	words := len(strings.Fields(prompt))
	if words > 0 && words < 5 {
		score += 0.3
	}

	if strings.Count(prompt, "?") > 1 {
		score += 0.1
	}

	return clamp01(score)
}

// containsWord reports whether lower contains keyword on word boundaries
func containsWord(lower, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		beforeOK := start == 0 || !isWordChar(lower[start-1])
		afterOK := end == len(lower) || !isWordChar(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
