package classifier

import "strings"

// Intent labels produced by classification.
const (
	IntentGreeting     = "greeting"
	IntentStatusQuery  = "status_query"
	IntentNewTicket    = "new_ticket"
	IntentChatWithTech = "chat_with_tech"
	IntentUnknown      = "unknown"
)

// Result is the transient classification outcome consumed once by the
// conversation router.
type Result struct {
	Intent            string  `json:"intent"`
	Confidence        float64 `json:"confidence"`
	ShouldRouteToTech bool    `json:"shouldRouteToTech"`
}

type keywordCategory struct {
	intent   string
	keywords []string
}

// Categories are evaluated in declared order; the first category with a
// matching keyword wins. There is no scoring across categories.
var ruleCategories = []keywordCategory{
	{
		intent: IntentGreeting,
		keywords: []string{
			"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite",
			"hello", "hi", "hey",
		},
	},
	{
		intent: IntentStatusQuery,
		keywords: []string{
			"status", "andamento", "meu chamado", "meu ticket",
			"previsão", "previsao", "quando fica pronto",
		},
	},
	{
		intent: IntentNewTicket,
		keywords: []string{
			"não funciona", "nao funciona", "problema", "quebrado",
			"quebrou", "parou", "defeito", "erro", "ajuda", "suporte",
			"preciso de", "novo chamado",
		},
	},
}

// RuleClassify is the deterministic local fallback. It is a pure function of
// its inputs: identical (text, hasActiveTicket) always yields an identical
// Result.
func RuleClassify(text string, hasActiveTicket bool) Result {
	normalized := strings.ToLower(strings.TrimSpace(text))

	for _, category := range ruleCategories {
		if !matchesAny(normalized, category.keywords) {
			continue
		}
		// A greeting mid-conversation is conversation continuation, not a
		// new salutation.
		if category.intent == IntentGreeting && hasActiveTicket {
			return Result{Intent: IntentChatWithTech, Confidence: 0.7, ShouldRouteToTech: true}
		}
		return Result{
			Intent:            category.intent,
			Confidence:        0.6,
			ShouldRouteToTech: hasActiveTicket && category.intent != IntentNewTicket,
		}
	}

	if hasActiveTicket {
		return Result{Intent: IntentChatWithTech, Confidence: 0.5, ShouldRouteToTech: true}
	}
	return Result{Intent: IntentUnknown, Confidence: 0.3, ShouldRouteToTech: false}
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
