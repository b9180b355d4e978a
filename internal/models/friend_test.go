package models

import "testing"

func TestInitials(t *testing.T) {
	tests := map[string]string{
		"Long He":          "LH",
		"Andy (Xinji) Shi": "AS",
		"Elva":             "EL",
		"winston van lin":  "WL",
		"(Nick)":           "(N",
		"":                 "",
		"Émile Zola":       "ÉZ",
	}
	for name, want := range tests {
		if got := Initials(name); got != want {
			t.Errorf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}
