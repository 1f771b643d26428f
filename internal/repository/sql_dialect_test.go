package repository

import (
	"strings"
	"testing"
)

func TestBuildLikeConditionByDialect(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("sqlite", []string{"code_part1", " ", "customer_id"})
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
	if condition != "code_part1 LIKE ? OR customer_id LIKE ?" {
		t.Fatalf("unexpected sqlite condition: %s", condition)
	}

	condition, _ = buildLikeConditionByDialect("postgres", []string{"name"})
	if !strings.Contains(condition, "name ILIKE ?") {
		t.Fatalf("postgres should use ILIKE, got %s", condition)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%test%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for idx, arg := range args {
		if arg != "%test%" {
			t.Fatalf("args[%d] want %%test%% got %v", idx, arg)
		}
	}
}
