// Package intent classifies a raw user query into a QueryIntent: a type,
// a scope, extracted entities, a complexity score, an estimated token
// budget, and default selection/compression knobs. It performs no network
// calls and computes no embeddings.
package intent

import (
	"regexp"
	"sort"
	"strings"
)

// Type is the classified purpose of a query.
type Type string

const (
	TypeBugFix     Type = "bug_fix"
	TypeFeatureAdd Type = "feature_add"
	TypeExplain    Type = "explain"
	TypeRefactor   Type = "refactor"
	TypeTest       Type = "test"
	TypeSearch     Type = "search"
	TypeGeneral    Type = "general"
)

// Scope bounds how far retrieval may range.
type Scope string

const (
	ScopeCurrentFile Scope = "current_file"
	ScopeCurrentDir  Scope = "current_dir"
	ScopeProject     Scope = "project"
	ScopeGlobal      Scope = "global"
)

// CompressionLevel controls how aggressively chunks are compressed.
type CompressionLevel string

const (
	CompressionLight      CompressionLevel = "light"
	CompressionMedium     CompressionLevel = "medium"
	CompressionAggressive CompressionLevel = "aggressive"
)

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntitySymbol  EntityType = "symbol"
	EntityFile    EntityType = "file"
	EntityTypeName   EntityType = "type"
	EntityKeyword EntityType = "keyword"
)

// Entity is a single extracted mention within the query.
type Entity struct {
	Type       EntityType
	Value      string
	Confidence float64
	Position   int
}

// Options carries selection and compression defaults derived from intent
// and scope.
type Options struct {
	MaxChunks        int
	MinRelevance     float64
	PreferDiversity  bool
	CompressionLevel CompressionLevel
}

// QueryIntent is the immutable result of analyzing a query.
type QueryIntent struct {
	Type             Type
	Scope            Scope
	Entities         []Entity
	Complexity       float64
	RequiresHistory  bool
	EstimatedBudget  int
	Options          Options
}

var typeKeywords = map[Type]map[string]float64{
	TypeBugFix: {
		"bug": 1, "fix": 1, "error": 1, "crash": 1, "broken": 1,
		"fails": 0.8, "failing": 0.8, "exception": 0.8, "issue": 0.6, "wrong": 0.5,
	},
	TypeFeatureAdd: {
		"add": 1, "implement": 1, "new feature": 1.2, "create": 0.8,
		"support": 0.6, "build": 0.6, "feature": 0.8,
	},
	TypeExplain: {
		"explain": 1, "how does": 1, "what is": 1, "understand": 0.8,
		"why": 0.6, "describe": 0.7, "walk me through": 1,
	},
	TypeRefactor: {
		"refactor": 1, "clean up": 1, "restructure": 1, "simplify": 0.7,
		"reorganize": 0.8, "rename": 0.5,
	},
	TypeTest: {
		"test": 1, "unit test": 1.2, "coverage": 0.7, "assert": 0.5, "mock": 0.5,
	},
	TypeSearch: {
		"find": 1, "search": 1, "where is": 1, "locate": 0.8, "look for": 0.8,
	},
}

var (
	backtickPattern  = regexp.MustCompile("`[^`]+`")
	quotedPattern    = regexp.MustCompile(`"[^"]+"|'[^']+'`)
	filenamePattern  = regexp.MustCompile(`\b[\w\-/]+\.[a-zA-Z][a-zA-Z0-9]{1,5}\b`)
	pascalCasePattern = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]*[A-Z][a-zA-Z0-9]*\b`)

	scopeFilePattern    = regexp.MustCompile(`\bin this file\b|\bcurrent file\b|\bthis file\b`)
	scopeDirPattern     = regexp.MustCompile(`\bcurrent directory\b|\bthis directory\b|\bthis folder\b`)
	scopeProjectPattern = regexp.MustCompile(`\bproject[- ]wide\b|\bwhole project\b|\bentire codebase\b`)

	deepKeywordPattern = regexp.MustCompile(`\bconcurrency\b|\bdeadlock\b|\brace condition\b|\bmemory leak\b|\bperformance\b|\barchitecture\b|\bdistributed\b|\bthread[- ]safe\b`)
	connectivePattern  = regexp.MustCompile(`\band then\b|\bafter that\b|\bas well as\b|\bin addition\b|\bfollowed by\b`)
	anaphoraPattern    = regexp.MustCompile(`\bit\b|\bthat\b|\bthis\b|\bthose\b|\bthey\b|\balso\b|\bagain\b`)

	keywordVocabulary = []string{
		"function", "class", "method", "interface", "struct", "variable",
		"loop", "array", "map", "channel", "goroutine", "pointer", "slice",
		"endpoint", "handler", "middleware", "query", "schema", "migration",
	}
)

var budgetBase = map[Type]int{
	TypeBugFix:     8000,
	TypeFeatureAdd: 10000,
	TypeExplain:    5000,
	TypeRefactor:   7000,
	TypeTest:       6000,
	TypeSearch:     3000,
	TypeGeneral:    4000,
}

var scopeMultiplier = map[Scope]float64{
	ScopeCurrentFile: 0.5,
	ScopeCurrentDir:  0.75,
	ScopeProject:     1.0,
	ScopeGlobal:      1.5,
}

var maxChunksByType = map[Type]int{
	TypeBugFix:     20,
	TypeFeatureAdd: 30,
	TypeExplain:    10,
	TypeRefactor:   25,
	TypeTest:       15,
	TypeSearch:     50,
	TypeGeneral:    15,
}

// Analyze derives a QueryIntent from a raw query and the length of any
// preceding conversation history.
func Analyze(query string, historyLen int) QueryIntent {
	lower := strings.ToLower(query)

	t := classifyType(lower)
	entities := extractEntities(query)
	scope := inferScope(lower, entities)
	complexity := computeComplexity(query, lower, entities, historyLen)
	budget := estimatedBudget(t, scope, complexity)

	return QueryIntent{
		Type:            t,
		Scope:           scope,
		Entities:        entities,
		Complexity:      complexity,
		RequiresHistory: anaphoraPattern.MatchString(lower) && historyLen > 0,
		EstimatedBudget: budget,
		Options:         defaultOptions(t, scope, complexity),
	}
}

func classifyType(lower string) Type {
	best := TypeGeneral
	bestScore := 0.0
	var candidates []Type

	for t, kws := range typeKeywords {
		score := 0.0
		for kw, weight := range kws {
			if strings.Contains(lower, kw) {
				score += weight
			}
		}
		if score > bestScore {
			bestScore = score
			candidates = []Type{t}
		} else if score == bestScore && score > 0 {
			candidates = append(candidates, t)
		}
	}

	if bestScore == 0 {
		return TypeGeneral
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	best = candidates[0]
	return best
}

func extractEntities(query string) []Entity {
	var entities []Entity
	seen := map[string]bool{}

	addEntity := func(et EntityType, value string, confidence float64, pos int) {
		key := string(et) + "|" + strings.ToLower(value)
		if seen[key] {
			return
		}
		seen[key] = true
		entities = append(entities, Entity{Type: et, Value: value, Confidence: confidence, Position: pos})
	}

	symbolSeen := map[string]bool{}
	for _, loc := range backtickPattern.FindAllStringIndex(query, -1) {
		v := strings.Trim(query[loc[0]:loc[1]], "`")
		addEntity(EntitySymbol, v, 0.9, loc[0])
		symbolSeen[strings.ToLower(v)] = true
	}
	for _, loc := range quotedPattern.FindAllStringIndex(query, -1) {
		v := strings.Trim(query[loc[0]:loc[1]], `"'`)
		addEntity(EntitySymbol, v, 0.9, loc[0])
		symbolSeen[strings.ToLower(v)] = true
	}

	for _, loc := range filenamePattern.FindAllStringIndex(query, -1) {
		v := query[loc[0]:loc[1]]
		if symbolSeen[strings.ToLower(v)] {
			continue
		}
		addEntity(EntityFile, v, 0.7, loc[0])
	}

	for _, loc := range pascalCasePattern.FindAllStringIndex(query, -1) {
		v := query[loc[0]:loc[1]]
		if symbolSeen[strings.ToLower(v)] {
			continue
		}
		addEntity(EntityTypeName, v, 0.5, loc[0])
	}

	lower := strings.ToLower(query)
	for _, kw := range keywordVocabulary {
		if idx := strings.Index(lower, kw); idx >= 0 {
			addEntity(EntityKeyword, kw, 0.6, idx)
		}
	}

	sort.SliceStable(entities, func(i, j int) bool { return entities[i].Position < entities[j].Position })
	return entities
}

func inferScope(lower string, entities []Entity) Scope {
	switch {
	case scopeFilePattern.MatchString(lower):
		return ScopeCurrentFile
	case scopeDirPattern.MatchString(lower):
		return ScopeCurrentDir
	case scopeProjectPattern.MatchString(lower):
		return ScopeProject
	}

	hasFile, hasSymbol := false, false
	for _, e := range entities {
		switch e.Type {
		case EntityFile:
			hasFile = true
		case EntitySymbol, EntityTypeName:
			hasSymbol = true
		}
	}
	switch {
	case hasFile:
		return ScopeProject
	case hasSymbol:
		return ScopeCurrentDir
	default:
		return ScopeProject
	}
}

func computeComplexity(query, lower string, entities []Entity, historyLen int) float64 {
	words := strings.Fields(query)
	c := minF(float64(len(words))/50, 0.3)
	c += minF(float64(len(entities))*0.1, 0.3)
	if deepKeywordPattern.MatchString(lower) {
		c += 0.2
	}
	if connectivePattern.MatchString(lower) {
		c += 0.2
	}
	if historyLen > 3 {
		c += 0.1
	}
	return minF(c, 1.0)
}

func estimatedBudget(t Type, scope Scope, complexity float64) int {
	base := float64(budgetBase[t])
	mult := scopeMultiplier[scope]
	return roundInt(base * mult * (1 + complexity))
}

func defaultOptions(t Type, scope Scope, complexity float64) Options {
	level := CompressionMedium
	switch {
	case complexity < 0.3:
		level = CompressionLight
	case complexity > 0.7:
		level = CompressionAggressive
	}
	return Options{
		MaxChunks:        maxChunksByType[t],
		MinRelevance:     0.3,
		PreferDiversity:  scope == ScopeProject,
		CompressionLevel: level,
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func roundInt(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
