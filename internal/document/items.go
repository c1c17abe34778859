package document

// Entry carries the stable identifier of a list item.
type Entry struct {
	ID int64 `json:"id"`
}

func (e *Entry) entry() *Entry { return e }

// item is satisfied by pointers to every list item type.
type item[T any] interface {
	*T
	entry() *Entry
}

// PersonalInfo holds identity and contact details.
type PersonalInfo struct {
	FullName     string        `json:"fullName"`
	Headline     string        `json:"headline,omitempty"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Location     string        `json:"location,omitempty"`
	Website      string        `json:"website,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	Photo        []byte        `json:"photo,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

// IsZero reports whether no personal field is filled in.
func (p PersonalInfo) IsZero() bool {
	return p.FullName == "" && p.Headline == "" && p.Email == "" && p.Phone == "" &&
		p.Location == "" && p.Website == "" && p.Summary == "" && len(p.Photo) == 0 &&
		len(p.CustomFields) == 0
}

// CustomField is a free-form label/value pair shown with the contact details.
type CustomField struct {
	Entry
	Label string `json:"label"`
	Value string `json:"value"`
	IsURL bool   `json:"isUrl,omitempty"`
}

type Experience struct {
	Entry
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	Location    string   `json:"location,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	Current     bool     `json:"current,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

type Education struct {
	Entry
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Score       string `json:"score,omitempty"`
	Description string `json:"description,omitempty"`
}

// Skill level runs from 0 (unrated) to MaxSkillLevel.
type Skill struct {
	Entry
	Name  string `json:"name"`
	Level int    `json:"level,omitempty"`
}

const MaxSkillLevel = 5

func clampLevel(lv int) int {
	return min(max(lv, 0), MaxSkillLevel)
}

type Interest struct {
	Entry
	Name string `json:"name"`
}

type Language struct {
	Entry
	Name        string `json:"name"`
	Proficiency string `json:"proficiency,omitempty"`
}

// CustomSection is a user-titled section with generic items.
type CustomSection struct {
	Entry
	Title string       `json:"title"`
	Items []CustomItem `json:"items"`
}

type CustomItem struct {
	Entry
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

func appendItem[T any, P item[T]](d *Document, list []T, v T) ([]T, int64) {
	id := d.nextID()
	P(&v).entry().ID = id
	return append(list, v), id
}

func removeItem[T any, P item[T]](list []T, id int64) ([]T, bool) {
	for i := range list {
		if P(&list[i]).entry().ID == id {
			out := make([]T, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}

func updateItem[T any, P item[T]](list []T, id int64, fn func(*T)) bool {
	for i := range list {
		p := P(&list[i])
		if p.entry().ID == id {
			fn(&list[i])
			// the identifier is owned by the document
			p.entry().ID = id
			return true
		}
	}
	return false
}

// AddExperience appends e with a fresh identifier and returns it.
func (d *Document) AddExperience(e Experience) int64 {
	var id int64
	d.Experience, id = appendItem(d, d.Experience, e)
	return id
}

func (d *Document) RemoveExperience(id int64) bool {
	var ok bool
	d.Experience, ok = removeItem(d.Experience, id)
	return ok
}

func (d *Document) UpdateExperience(id int64, fn func(*Experience)) bool {
	return updateItem(d.Experience, id, fn)
}

func (d *Document) AddEducation(e Education) int64 {
	var id int64
	d.Education, id = appendItem(d, d.Education, e)
	return id
}

func (d *Document) RemoveEducation(id int64) bool {
	var ok bool
	d.Education, ok = removeItem(d.Education, id)
	return ok
}

func (d *Document) UpdateEducation(id int64, fn func(*Education)) bool {
	return updateItem(d.Education, id, fn)
}

func (d *Document) AddSkill(s Skill) int64 {
	s.Level = clampLevel(s.Level)
	var id int64
	d.Skills, id = appendItem(d, d.Skills, s)
	return id
}

func (d *Document) RemoveSkill(id int64) bool {
	var ok bool
	d.Skills, ok = removeItem(d.Skills, id)
	return ok
}

func (d *Document) AddInterest(i Interest) int64 {
	var id int64
	d.Interests, id = appendItem(d, d.Interests, i)
	return id
}

func (d *Document) RemoveInterest(id int64) bool {
	var ok bool
	d.Interests, ok = removeItem(d.Interests, id)
	return ok
}

func (d *Document) AddLanguage(l Language) int64 {
	var id int64
	d.Languages, id = appendItem(d, d.Languages, l)
	return id
}

func (d *Document) RemoveLanguage(id int64) bool {
	var ok bool
	d.Languages, ok = removeItem(d.Languages, id)
	return ok
}

func (d *Document) AddCustomField(f CustomField) int64 {
	var id int64
	d.PersonalInfo.CustomFields, id = appendItem(d, d.PersonalInfo.CustomFields, f)
	return id
}

func (d *Document) RemoveCustomField(id int64) bool {
	var ok bool
	d.PersonalInfo.CustomFields, ok = removeItem(d.PersonalInfo.CustomFields, id)
	return ok
}

// AddCustomSection appends a custom section. Items passed in get fresh identifiers too.
func (d *Document) AddCustomSection(cs CustomSection) int64 {
	items := cs.Items
	cs.Items = make([]CustomItem, 0, len(items))
	var id int64
	d.CustomSections, id = appendItem(d, d.CustomSections, cs)
	for _, it := range items {
		d.AddCustomItem(id, it)
	}
	return id
}

func (d *Document) RemoveCustomSection(id int64) bool {
	var ok bool
	d.CustomSections, ok = removeItem(d.CustomSections, id)
	return ok
}

// AddCustomItem appends an item to a custom section. It returns false when the section does not exist.
func (d *Document) AddCustomItem(sectionID int64, it CustomItem) (int64, bool) {
	cs, ok := d.CustomSection(sectionID)
	if !ok {
		return 0, false
	}
	var id int64
	cs.Items, id = appendItem(d, cs.Items, it)
	return id, true
}

func (d *Document) RemoveCustomItem(sectionID, itemID int64) bool {
	cs, ok := d.CustomSection(sectionID)
	if !ok {
		return false
	}
	cs.Items, ok = removeItem(cs.Items, itemID)
	return ok
}
