// Package document defines the structured résumé content that templates render.
package document

import (
	"strconv"
	"strings"
)

// Built-in section keys. The set is closed; custom sections add dynamic keys via CustomKey.
const (
	KeyPersonalInfo   = "personalInfo"
	KeySummary        = "summary"
	KeyExperience     = "experience"
	KeyEducation      = "education"
	KeySkills         = "skills"
	KeyInterests      = "interests"
	KeyLanguages      = "languages"
	KeyCustomSections = "customSections"
)

const customKeyPrefix = "custom:"

// DefaultTemplateID selects the renderer used when a document names none.
const DefaultTemplateID = "classic"

// BuiltinKeys returns the fixed section keys in their default display order.
func BuiltinKeys() []string {
	return []string{
		KeyPersonalInfo,
		KeySummary,
		KeyExperience,
		KeyEducation,
		KeySkills,
		KeyInterests,
		KeyLanguages,
		KeyCustomSections,
	}
}

// CustomKey returns the visibility key of one custom section.
func CustomKey(id int64) string {
	return customKeyPrefix + strconv.FormatInt(id, 10)
}

// ParseCustomKey extracts the custom section id from a key produced by CustomKey.
func ParseCustomKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, customKeyPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Document is the full structured content of one résumé.
type Document struct {
	Title      string `json:"title"`
	JobTitle   string `json:"jobTitle,omitempty"`
	Company    string `json:"company,omitempty"`
	TemplateID string `json:"templateId"`

	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []Skill         `json:"skills"`
	Interests      []Interest      `json:"interests"`
	Languages      []Language      `json:"languages"`
	CustomSections []CustomSection `json:"customSections"`

	Theme Theme `json:"theme"`

	// Seq is the last identifier handed out. Identifiers are never reused, even after deletion.
	Seq int64 `json:"seq"`
}

// New returns an empty document with default settings.
func New() *Document {
	return &Document{
		Title:          "Untitled",
		TemplateID:     DefaultTemplateID,
		Experience:     []Experience{},
		Education:      []Education{},
		Skills:         []Skill{},
		Interests:      []Interest{},
		Languages:      []Language{},
		CustomSections: []CustomSection{},
	}
}

// SectionKeys returns the keys recognized for this document: the built-in keys followed by one
// key per custom section, in custom section order.
func (d *Document) SectionKeys() []string {
	keys := BuiltinKeys()
	for _, cs := range d.CustomSections {
		keys = append(keys, CustomKey(cs.ID))
	}
	return keys
}

// HasSection reports whether key is recognized for this document.
func (d *Document) HasSection(key string) bool {
	for _, k := range BuiltinKeys() {
		if k == key {
			return true
		}
	}
	if id, ok := ParseCustomKey(key); ok {
		_, found := d.CustomSection(id)
		return found
	}
	return false
}

// CustomSection returns the custom section with the given id.
func (d *Document) CustomSection(id int64) (*CustomSection, bool) {
	for i := range d.CustomSections {
		if d.CustomSections[i].ID == id {
			return &d.CustomSections[i], true
		}
	}
	return nil, false
}

// IsEmpty reports whether the document has no content beyond its identity fields.
func (d *Document) IsEmpty() bool {
	return d.PersonalInfo.IsZero() &&
		len(d.Experience) == 0 &&
		len(d.Education) == 0 &&
		len(d.Skills) == 0 &&
		len(d.Interests) == 0 &&
		len(d.Languages) == 0 &&
		len(d.CustomSections) == 0
}

func (d *Document) nextID() int64 {
	d.Seq++
	return d.Seq
}
