package authorization

import (
	"testing"
)

func TestConditionEngine_Evaluate(t *testing.T) {
	engine, err := NewConditionEngine()
	if err != nil {
		t.Fatalf("NewConditionEngine: %v", err)
	}

	condCtx := &ConditionContext{
		Request: map[string]interface{}{
			"owner_id": "alice",
			"amount":   float64(250),
			"region":   "eu-west",
		},
		Subject: map[string]interface{}{
			"id":        "alice",
			"tenant_id": "tenant-a",
		},
	}

	tests := []struct {
		name       string
		expression string
		want       bool
		wantErr    bool
	}{
		{
			name:       "empty expression always matches",
			expression: "",
			want:       true,
		},
		{
			name:       "request variable comparison true",
			expression: `request.region == "eu-west"`,
			want:       true,
		},
		{
			name:       "request variable comparison false",
			expression: `request.region == "us-east"`,
			want:       false,
		},
		{
			name:       "request against subject",
			expression: `request.owner_id == subject.id`,
			want:       true,
		},
		{
			name:       "numeric comparison",
			expression: `request.amount < 1000.0`,
			want:       true,
		},
		{
			name:       "compound expression",
			expression: `request.region == "eu-west" && request.amount >= 100.0`,
			want:       true,
		},
		{
			name:       "syntax error",
			expression: `request.((`,
			wantErr:    true,
		},
		{
			name:       "missing key",
			expression: `request.nonexistent == "x"`,
			wantErr:    true,
		},
		{
			name:       "non-boolean result",
			expression: `request.region`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.expression, condCtx)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expression, got, tt.want)
			}
		})
	}
}

func TestConditionEngine_EvaluateNilContext(t *testing.T) {
	engine, err := NewConditionEngine()
	if err != nil {
		t.Fatalf("NewConditionEngine: %v", err)
	}

	// A nil context still evaluates against empty maps.
	got, err := engine.Evaluate(`"admin" in request ? true : false`, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got {
		t.Error("empty request map should not contain any key")
	}
}

func TestConditionEngine_ValidateExpression(t *testing.T) {
	engine, err := NewConditionEngine()
	if err != nil {
		t.Fatalf("NewConditionEngine: %v", err)
	}

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{name: "empty is valid", expression: ""},
		{name: "boolean expression", expression: `subject.id == "alice"`},
		{name: "syntax error", expression: `request.((`, wantErr: true},
		{name: "non-boolean output", expression: `request.owner_id`, wantErr: true},
		{name: "unknown variable", expression: `resource.id == "x"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.ValidateExpression(tt.expression)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateExpression(%q) = nil, want error", tt.expression)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateExpression(%q) = %v, want nil", tt.expression, err)
			}
		})
	}
}
