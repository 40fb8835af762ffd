package classifier

import "testing"

func TestRuleClassify_Table(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		hasActive bool
		want      Result
	}{
		{
			name: "greeting without ticket",
			text: "Bom dia", hasActive: false,
			want: Result{Intent: IntentGreeting, Confidence: 0.6, ShouldRouteToTech: false},
		},
		{
			name: "english greeting without ticket",
			text: "hi", hasActive: false,
			want: Result{Intent: IntentGreeting, Confidence: 0.6, ShouldRouteToTech: false},
		},
		{
			name: "problem description opens ticket",
			text: "meu computador não funciona", hasActive: false,
			want: Result{Intent: IntentNewTicket, Confidence: 0.6, ShouldRouteToTech: false},
		},
		{
			name: "greeting override with active ticket",
			text: "oi", hasActive: true,
			want: Result{Intent: IntentChatWithTech, Confidence: 0.7, ShouldRouteToTech: true},
		},
		{
			name: "unmatched with active ticket",
			text: "xyz123", hasActive: true,
			want: Result{Intent: IntentChatWithTech, Confidence: 0.5, ShouldRouteToTech: true},
		},
		{
			name: "unmatched without ticket",
			text: "xyz123", hasActive: false,
			want: Result{Intent: IntentUnknown, Confidence: 0.3, ShouldRouteToTech: false},
		},
		{
			name: "status query without ticket",
			text: "qual o status do atendimento?", hasActive: false,
			want: Result{Intent: IntentStatusQuery, Confidence: 0.6, ShouldRouteToTech: false},
		},
		{
			name: "status query with active ticket routes to tech",
			text: "qual o andamento?", hasActive: true,
			want: Result{Intent: IntentStatusQuery, Confidence: 0.6, ShouldRouteToTech: true},
		},
		{
			name: "new ticket intent never routes to tech",
			text: "tenho um problema", hasActive: true,
			want: Result{Intent: IntentNewTicket, Confidence: 0.6, ShouldRouteToTech: false},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RuleClassify(tc.text, tc.hasActive)
			if got != tc.want {
				t.Errorf("RuleClassify(%q, %v) = %+v, want %+v", tc.text, tc.hasActive, got, tc.want)
			}
		})
	}
}

func TestRuleClassify_Deterministic(t *testing.T) {
	first := RuleClassify("  Bom Dia  ", false)
	for i := 0; i < 10; i++ {
		if got := RuleClassify("  Bom Dia  ", false); got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestRuleClassify_CategoryOrder(t *testing.T) {
	// Text matching both greeting and new_ticket keywords: greeting is
	// evaluated first and wins.
	got := RuleClassify("bom dia, meu notebook quebrou", false)
	if got.Intent != IntentGreeting {
		t.Errorf("Intent = %q, want %q (first category wins)", got.Intent, IntentGreeting)
	}
}

func TestRuleClassify_NormalizesInput(t *testing.T) {
	upper := RuleClassify("BOA TARDE", false)
	if upper.Intent != IntentGreeting {
		t.Errorf("Intent = %q, want %q", upper.Intent, IntentGreeting)
	}
}
