package classifier

import (
	"regexp"

	"github.com/routeworks/llm-router/models"
)

// taskProfile holds the scoring table for one task type. Keyword hits score
// 1.0, regex hits 2.0, and the sum is scaled by weight.
type taskProfile struct {
	keywords []string
	patterns []*regexp.Regexp
	weight   float64
}

var taskProfiles = map[models.TaskType]taskProfile{
	models.TaskCode: {
		keywords: []string{
			"function", "code", "program", "implement", "debug", "refactor",
			"algorithm", "api", "class", "method", "variable", "loop",
			"syntax", "compile", "runtime", "database", "query", "sql",
			"python", "javascript", "typescript", "java", "rust", "golang",
			"html", "css", "react", "django", "flask", "fastapi",
		},
		patterns: compile(
			`write\s+(?:a\s+)?(?:python|javascript|java|c\+\+|rust|go|typescript)`,
			`(?:fix|debug|refactor)\s+(?:this|the|my)\s+code`,
			`implement\s+(?:a\s+)?(?:function|class|method|api|endpoint)`,
			"```[\\s\\S]*```",
			`how\s+(?:do|can|to)\s+(?:i\s+)?(?:code|program|implement)`,
		),
		weight: 1.0,
	},
	models.TaskCreative: {
		keywords: []string{
			"write", "story", "poem", "essay", "creative", "fiction",
			"character", "narrative", "dialogue", "metaphor", "imagine",
			"compose", "draft", "blog", "article", "screenplay", "lyric",
		},
		patterns: compile(
			`write\s+(?:a\s+)?(?:story|poem|essay|article|blog|screenplay)`,
			`(?:creative|fiction|narrative)\s+writing`,
			`imagine\s+(?:a|that|if)`,
			`compose\s+(?:a\s+)?(?:poem|letter|song|email)`,
		),
		weight: 1.0,
	},
	models.TaskMath: {
		keywords: []string{
			"calculate", "solve", "equation", "math", "algebra", "calculus",
			"probability", "statistics", "integral", "derivative", "proof",
			"theorem", "formula", "geometric", "trigonometry", "matrix",
			"vector", "optimization", "linear", "quadratic",
		},
		patterns: compile(
			`(?:solve|calculate|compute|evaluate|find)\s+(?:the|this|for)`,
			`\d+\s*[\+\-\*\/\^]\s*\d+`,
			`(?:integral|derivative|limit)\s+of`,
			`(?:prove|show)\s+that`,
			`what\s+is\s+\d+`,
		),
		weight: 1.0,
	},
	models.TaskSummarization: {
		keywords: []string{
			"summarize", "summary", "tldr", "brief", "condense", "overview",
			"key points", "main ideas", "recap", "digest", "abstract",
			"shorten", "highlights",
		},
		patterns: compile(
			`(?:summarize|sum up|give\s+(?:a|me)\s+(?:a\s+)?summary)`,
			`(?:tldr|tl;dr|too\s+long)`,
			`(?:key|main|important)\s+(?:points|ideas|takeaways)`,
			`(?:brief|short|concise)\s+(?:overview|summary|description)`,
		),
		weight: 1.0,
	},
	models.TaskTranslation: {
		keywords: []string{
			"translate", "translation", "convert", "language", "spanish",
			"french", "german", "chinese", "japanese", "korean", "arabic",
			"portuguese", "italian", "russian", "hindi", "localize",
		},
		patterns: compile(
			`translate\s+(?:this|the|following|into|to|from)`,
			`(?:from|into|to)\s+(?:english|spanish|french|german|chinese|japanese|korean|arabic|portuguese|italian|russian|hindi)`,
			`(?:in|to)\s+\w+\s+(?:language|translation)`,
			`how\s+(?:do\s+you\s+)?say\s+.+\s+in\s+\w+`,
		),
		weight: 1.0,
	},
	models.TaskQA: {
		keywords: []string{
			"what", "who", "where", "when", "why", "how", "explain",
			"define", "describe", "tell", "meaning", "difference",
			"compare", "example", "does", "is", "are", "can",
		},
		patterns: compile(
			`^(?:what|who|where|when|why|how)\s+`,
			`(?:explain|describe|define)\s+(?:the|what|how)`,
			`what\s+(?:is|are|does|do)\s+`,
			`(?:can|could)\s+you\s+(?:explain|tell|describe)`,
			`(?:difference|comparison)\s+between`,
		),
		// QA keywords are common in every prompt, so they score lower.
		weight: 0.8,
	},
	models.TaskMultiStep: {
		keywords: []string{
			"step", "steps", "first", "then", "next", "finally",
			"process", "workflow", "pipeline", "plan", "strategy",
			"guide", "tutorial", "walkthrough", "instructions", "procedure",
		},
		patterns: compile(
			`step[\s-]by[\s-]step`,
			`(?:first|then|next|finally|after\s+that)`,
			`(?:create|build|design|develop)\s+(?:a\s+)?(?:complete|full|entire)`,
			`(?:how\s+to|guide\s+(?:to|for|on))\s+(?:build|create|set\s+up|deploy)`,
			`(?:plan|strategy|roadmap)\s+for`,
		),
		weight: 1.0,
	},
}

// reasoningMarkers are discourse markers counted by the reasoning-depth signal.
var reasoningMarkers = []string{
	"because", "therefore", "however", "although", "whereas",
	"if", "then", "else", "unless", "assuming",
	"compare", "contrast", "analyze", "evaluate", "assess",
	"pros and cons", "trade-off", "implications", "consequences",
	"on the other hand", "alternatively", "furthermore", "moreover",
	"considering", "given that", "in light of",
}

// domainVocabulary feeds the domain-specificity signal.
var domainVocabulary = map[string][]string{
	"medical": {"diagnosis", "symptom", "treatment", "patient", "clinical", "pathology",
		"pharmaceutical", "dosage", "prognosis", "etiology", "comorbidity"},
	"legal": {"jurisdiction", "statute", "liability", "plaintiff", "defendant",
		"precedent", "tort", "breach", "contractual", "indemnity", "arbitration"},
	"financial": {"portfolio", "derivative", "hedge", "amortization", "equity",
		"dividend", "liquidity", "volatility", "arbitrage", "securities"},
	"scientific": {"hypothesis", "methodology", "empirical", "quantitative", "peer-reviewed",
		"replication", "variance", "coefficient", "correlation", "longitudinal"},
}

// taskBaseComplexity is the inherent difficulty per task type, scaled by
// classification confidence in the task-type-match signal.
var taskBaseComplexity = map[models.TaskType]float64{
	models.TaskCode:          6.0,
	models.TaskCreative:      5.0,
	models.TaskMath:          7.0,
	models.TaskSummarization: 3.0,
	models.TaskTranslation:   4.0,
	models.TaskQA:            3.0,
	models.TaskMultiStep:     7.0,
}

func compile(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}
