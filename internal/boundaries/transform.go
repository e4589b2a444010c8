package boundaries

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// DisplayName resolves a human-readable name from an OSM tag set: preferred
// languages in order, then the default name, then the official name, then a
// placeholder built from the relation id. First non-empty value wins.
func DisplayName(tags map[string]string, languages []string, externalID int64) string {
	for _, lang := range languages {
		if v := tags["name:"+normalizeLang(lang)]; v != "" {
			return v
		}
	}
	if v := tags["name"]; v != "" {
		return v
	}
	if v := tags["official_name"]; v != "" {
		return v
	}
	return fmt.Sprintf("relation/%d", externalID)
}

// normalizeLang canonicalizes a configured language code into the form OSM
// uses in name:<lang> keys ("EN" -> "en", "pt_br" -> "pt-BR").
func normalizeLang(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(code))
	}
	return tag.String()
}

// ProjectTags copies the recognized keys out of an OSM tag set. Keys absent
// from the source stay absent from the result.
func ProjectTags(tags map[string]string, keys []string) TagBag {
	out := TagBag{}
	for _, k := range keys {
		if v := tags[k]; v != "" {
			out[k] = v
		}
	}
	return out
}
