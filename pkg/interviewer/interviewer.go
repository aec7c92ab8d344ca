package interviewer

import (
	"strings"
	"time"
)

// Tag is a technology or an interview subject an interviewer can be filtered by.
type Tag struct {
	Id   int
	Name string
	Slug string
}

type TagKind int

const (
	TechnologyTag TagKind = iota
	SubjectTag
)

func (k TagKind) String() string {
	if k == SubjectTag {
		return "subject"
	}
	return "technology"
}

type Interviewer struct {
	Id              int
	UserId          int
	Username        string
	FirstName       string
	LastName        string
	Email           string
	Bio             string
	PhotoKey        string
	CalEventTypeId  string
	HourlyRateCents int64
	IsActive        bool
	Companies       string
	Technologies    []Tag
	Subjects        []Tag
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (i Interviewer) DisplayName() string {
	full := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if full != "" {
		return full
	}
	return i.Username
}

func (i Interviewer) Initials() string {
	var b strings.Builder
	for _, part := range strings.Fields(i.DisplayName()) {
		b.WriteString(strings.ToUpper(string([]rune(part)[0])))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}

// CompanyList splits the comma separated companies field.
func (i Interviewer) CompanyList() []string {
	companies := make([]string, 0)
	for _, c := range strings.Split(i.Companies, ",") {
		if c = strings.TrimSpace(c); c != "" {
			companies = append(companies, c)
		}
	}
	return companies
}

func (i Interviewer) HourlyRate() string {
	return FormatCents(i.HourlyRateCents)
}

func (i Interviewer) PhotoURL() string {
	if i.PhotoKey == "" {
		return ""
	}
	return "/media/" + i.PhotoKey
}

func (i Interviewer) TechnologyIds() map[int]bool {
	return tagIds(i.Technologies)
}

func (i Interviewer) SubjectIds() map[int]bool {
	return tagIds(i.Subjects)
}

func tagIds(tags []Tag) map[int]bool {
	ids := make(map[int]bool, len(tags))
	for _, t := range tags {
		ids[t.Id] = true
	}
	return ids
}

// Filter narrows the catalog. Empty slugs do not filter.
type Filter struct {
	TechnologySlug string
	SubjectSlug    string
}

// ProfileUpdate is what an interviewer can change from the dashboard.
// An empty PhotoKey keeps the current photo.
type ProfileUpdate struct {
	Bio             string
	Companies       string
	HourlyRateCents int64
	PhotoKey        string
	TechnologyIds   []int
	SubjectIds      []int
}
