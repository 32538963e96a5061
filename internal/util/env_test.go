package util

import "testing"

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("PLANNER_TEST_ADDR", "")
	if got := EnvOrDefault("PLANNER_TEST_ADDR", ":8080"); got != ":8080" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("PLANNER_TEST_ADDR", ":9090")
	if got := EnvOrDefault("PLANNER_TEST_ADDR", ":8080"); got != ":9090" {
		t.Fatalf("got %q", got)
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 150},
		{"120", 120},
		{" 90 ", 90},
		{"lots", 150},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PLANNER_TEST_CEILING", tt.value)
			if got := EnvInt("PLANNER_TEST_CEILING", 150); got != tt.want {
				t.Errorf("EnvInt(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"", true, true},
		{"true", false, true},
		{"0", true, false},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Setenv("PLANNER_TEST_FLAT", tt.value)
		if got := EnvBool("PLANNER_TEST_FLAT", tt.fallback); got != tt.want {
			t.Errorf("EnvBool(%q, %v) = %v, want %v", tt.value, tt.fallback, got, tt.want)
		}
	}
}
