package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value      string
		defaultVal bool
		want       bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{" true ", false, true},
		{"", true, true},
		{"", false, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, c := range cases {
		t.Setenv("ALUUNA_TEST_BOOL", c.value)
		if got := ParseBoolEnv("ALUUNA_TEST_BOOL", c.defaultVal); got != c.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", c.value, c.defaultVal, got, c.want)
		}
	}
}
