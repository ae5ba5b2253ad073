package voices

import (
	"slices"
	"strings"

	"dubber/internal/language"
)

// Attribute keys read from catalog labels.
const (
	AttrGender      = "gender"
	AttrAge         = "age"
	AttrAccent      = "accent"
	AttrDescription = "description"
	AttrUseCase     = "use_case"
)

// Descriptor describes one synthesis voice.
type Descriptor struct {
	ID         string            `json:"voice_id" yaml:"voice_id"`
	Name       string            `json:"name" yaml:"name"`
	Languages  []language.Code   `json:"languages" yaml:"languages"`
	Attributes map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Supports reports whether the voice declares lang.
func (d Descriptor) Supports(lang language.Code) bool {
	return slices.Contains(d.Languages, lang)
}

// Attr returns a lowercased, trimmed attribute value.
func (d Descriptor) Attr(key string) string {
	return strings.ToLower(strings.TrimSpace(d.Attributes[key]))
}

// Label returns the name when set, else the ID.
func (d Descriptor) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// style joins the descriptive labels the catalog uses for delivery style.
func (d Descriptor) style() string {
	return strings.Join([]string{d.Attr(AttrDescription), d.Attr("descriptive"), d.Attr(AttrUseCase)}, " ")
}
