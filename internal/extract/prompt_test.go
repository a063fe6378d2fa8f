package extract

import (
	"strings"
	"testing"
)

func TestBuildExtractionPrompt(t *testing.T) {
	prompt := buildExtractionPrompt(Input{
		Payees:            []string{"Example Store", "Tim Hortons"},
		OverrideMerchants: []string{"APPLE", "AMZN MKTP CA"},
	})

	for _, want := range []string{
		`["Example Store","Tim Hortons"]`,
		`["APPLE","AMZN MKTP CA"]`,
		"PayPal",
		"Shop Pay (SP)",
		"less than 200 characters",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("extraction prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildExtractionPromptEmptyLists(t *testing.T) {
	prompt := buildExtractionPrompt(Input{})
	if !strings.Contains(prompt, "[]") {
		t.Errorf("empty payee list should render as []:\n%s", prompt)
	}
}

func TestBuildMatchPrompt(t *testing.T) {
	prompt := buildMatchPrompt([]string{"Example Store"})
	if !strings.Contains(prompt, `["Example Store"]`) {
		t.Errorf("match prompt missing payee list:\n%s", prompt)
	}
	if !strings.Contains(prompt, "exactly one payee") {
		t.Errorf("match prompt should demand exactly one payee:\n%s", prompt)
	}
}
