package extract

import (
	"regexp"
	"strings"

	"bursary/internal/verification/models"
)

// FieldKind names a structured field the parser can extract.
type FieldKind string

const (
	FieldName       FieldKind = "name"
	FieldStudentID  FieldKind = "student_id"
	FieldDates      FieldKind = "dates"
	FieldAmounts    FieldKind = "amounts"
	FieldGrade      FieldKind = "grade"
	FieldDepartment FieldKind = "department"
	FieldYear       FieldKind = "year"
)

// PatternSet is the ordered regex table for one field kind. For scalar fields
// the first pattern with a match wins and later patterns are skipped. For
// collecting fields (dates, amounts) every pattern contributes every match,
// in table order.
type PatternSet struct {
	Field    FieldKind
	Collect  bool
	Patterns []*regexp.Regexp
}

// FieldPatterns is the extraction table applied to document text. It is
// exported so the parsing rules are testable independently of OCR.
var FieldPatterns = []PatternSet{
	{
		Field: FieldName,
		// The label is case-insensitive but the captured name is not, and the
		// name never crosses a line break.
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i:Name|Student Name|Applicant Name)[:\s]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)`),
			regexp.MustCompile(`(?:Mr\.|Ms\.|Miss)\s+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)`),
		},
	},
	{
		Field: FieldStudentID,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i:Student ID|ID No|Roll No|Registration No)[:\s]+([A-Z0-9]+)`),
			regexp.MustCompile(`\b([A-Z]\d{5,10})\b`),
		},
	},
	{
		Field:   FieldDates,
		Collect: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:Date|Date of Issue|Issued on)[:\s]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
			regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		},
	},
	{
		Field:   FieldAmounts,
		Collect: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:Amount|Fee|Total|Rs\.?|INR)[:\s]*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
			regexp.MustCompile(`₹\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
		},
	},
	{
		Field: FieldGrade,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:CGPA|GPA|Grade)[:\s]+([\d.]+)`),
			regexp.MustCompile(`(?i)(?:Percentage|Marks)[:\s]+(\d+(?:\.\d+)?)\s*%?`),
		},
	},
	{
		Field: FieldDepartment,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:Department|Branch|Course)[:\s]+([A-Za-z\s]+?)(?:\n|,|\.)`),
		},
	},
	{
		Field: FieldYear,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:Year|Semester)[:\s]+(\d+)`),
		},
	},
}

// ParseFields runs the pattern table against text. Missing fields stay empty;
// parsing never fails.
func ParseFields(text string) models.StructuredFields {
	var fields models.StructuredFields
	if text == "" {
		return fields
	}

	for _, set := range FieldPatterns {
		if set.Collect {
			// Every match of every pattern is kept, repeats included. The fraud
			// detector weighs warning counts, so collapsing repeats would change
			// its scores.
			var values []string
			for _, pattern := range set.Patterns {
				for _, m := range pattern.FindAllStringSubmatch(text, -1) {
					values = append(values, strings.TrimSpace(m[1]))
				}
			}
			setCollected(&fields, set.Field, values)
			continue
		}

		for _, pattern := range set.Patterns {
			if m := pattern.FindStringSubmatch(text); m != nil {
				setScalar(&fields, set.Field, strings.TrimSpace(m[1]))
				break
			}
		}
	}

	return fields
}

func setScalar(fields *models.StructuredFields, kind FieldKind, value string) {
	switch kind {
	case FieldName:
		fields.Name = value
	case FieldStudentID:
		fields.StudentID = value
	case FieldGrade:
		fields.Grade = value
	case FieldDepartment:
		fields.Department = value
	case FieldYear:
		fields.Year = value
	}
}

func setCollected(fields *models.StructuredFields, kind FieldKind, values []string) {
	switch kind {
	case FieldDates:
		fields.Dates = values
	case FieldAmounts:
		fields.Amounts = values
	}
}
