package boundaries_test

import (
	"testing"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/boundaries"
)

// TestDisplayName_PreferredLanguageOrder verifies that configured languages
// are tried in order before any fallback.
func TestDisplayName_PreferredLanguageOrder(t *testing.T) {
	tags := map[string]string{
		"name":    "پنجاب",
		"name:en": "Punjab",
		"name:ur": "پنجاب",
	}

	if got := boundaries.DisplayName(tags, []string{"en", "ur"}, 1); got != "Punjab" {
		t.Errorf("expected the English name, got %q", got)
	}
	if got := boundaries.DisplayName(tags, []string{"ur", "en"}, 1); got != "پنجاب" {
		t.Errorf("expected the Urdu name, got %q", got)
	}
}

// TestDisplayName_FallbackChain verifies the chain from localized name down
// to the relation-id placeholder.
func TestDisplayName_FallbackChain(t *testing.T) {
	cases := []struct {
		name string
		tags map[string]string
		want string
	}{
		{
			name: "default name when no localized name exists",
			tags: map[string]string{"name": "Sindh", "official_name": "Province of Sindh"},
			want: "Sindh",
		},
		{
			name: "official name when the default is absent",
			tags: map[string]string{"official_name": "Province of Sindh"},
			want: "Province of Sindh",
		},
		{
			name: "placeholder when nothing usable remains",
			tags: map[string]string{"boundary": "administrative"},
			want: "relation/4242",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := boundaries.DisplayName(tc.tags, []string{"en"}, 4242); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

// TestDisplayName_NormalizesLanguageCodes verifies that configured codes are
// canonicalized into the form used by OSM name keys.
func TestDisplayName_NormalizesLanguageCodes(t *testing.T) {
	tags := map[string]string{
		"name:en":    "Sao Paulo",
		"name:pt-BR": "São Paulo",
	}

	if got := boundaries.DisplayName(tags, []string{"EN"}, 1); got != "Sao Paulo" {
		t.Errorf("expected uppercase config code to match, got %q", got)
	}
	if got := boundaries.DisplayName(tags, []string{"pt_BR"}, 1); got != "São Paulo" {
		t.Errorf("expected underscore locale to match the hyphenated key, got %q", got)
	}
}

// TestProjectTags verifies that only the configured keys survive projection
// and absent keys stay absent.
func TestProjectTags(t *testing.T) {
	tags := map[string]string{
		"population": "12000000",
		"wikidata":   "Q1183",
		"boundary":   "administrative",
		"name":       "Punjab",
	}

	got := boundaries.ProjectTags(tags, []string{"population", "wikidata", "ISO3166-2"})

	if len(got) != 2 {
		t.Fatalf("expected 2 projected tags, got %v", got)
	}
	if got["population"] != "12000000" || got["wikidata"] != "Q1183" {
		t.Errorf("unexpected projection: %v", got)
	}
	if _, ok := got["ISO3166-2"]; ok {
		t.Error("expected missing source keys to stay absent")
	}
	if _, ok := got["boundary"]; ok {
		t.Error("expected unlisted keys to be dropped")
	}
}
