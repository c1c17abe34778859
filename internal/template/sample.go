package template

import (
	"phCompose/internal/document"
	"phCompose/internal/section"
)

// Sample returns the placeholder document used for catalogue thumbnails.
func Sample() (*document.Document, section.State) {
	d := document.New()
	d.Title = "Sample"
	d.PersonalInfo = document.PersonalInfo{
		FullName: "Alex Morgan",
		Headline: "Senior Software Engineer",
		Email:    "alex@example.com",
		Phone:    "+1 555 0100",
		Location: "Berlin",
		Website:  "https://example.com",
		Summary:  "Engineer focused on distributed systems and developer tooling, with a record of shipping reliable services.",
	}
	d.AddExperience(document.Experience{
		Position:    "Senior Software Engineer",
		Company:     "Northwind",
		Location:    "Berlin",
		StartDate:   "2021",
		Current:     true,
		Description: "Lead the storage team.",
		Highlights:  []string{"Cut p99 latency by 40%", "Migrated 2 PB of data without downtime"},
	})
	d.AddExperience(document.Experience{
		Position:  "Software Engineer",
		Company:   "Contoso",
		StartDate: "2017",
		EndDate:   "2021",
		Highlights: []string{
			"Built the billing pipeline",
			"Mentored four engineers",
		},
	})
	d.AddEducation(document.Education{Institution: "TU Munich", Degree: "M.Sc.", Field: "Computer Science", StartDate: "2015", EndDate: "2017"})
	for i, s := range []string{"Go", "PostgreSQL", "Kubernetes", "gRPC"} {
		d.AddSkill(document.Skill{Name: s, Level: 5 - i})
	}
	d.AddLanguage(document.Language{Name: "English", Proficiency: "Fluent"})
	d.AddLanguage(document.Language{Name: "German", Proficiency: "Native"})
	d.AddInterest(document.Interest{Name: "Climbing"})
	d.AddCustomSection(document.CustomSection{
		Title: "Talks",
		Items: []document.CustomItem{{Title: "Zero-downtime migrations", Subtitle: "GopherCon EU", Date: "2023"}},
	})
	return d, section.Normalize(section.State{}, d.SectionKeys())
}
