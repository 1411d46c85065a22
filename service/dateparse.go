package service

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedQuery is the result of extracting a date expression from a
// free-text search query. Year and Month are 0 when absent.
type ParsedQuery struct {
	CleanQuery string
	Year       int
	Month      int
}

var monthNames = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may":  5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sept": 9, "sep": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var (
	numericMonthRe = regexp.MustCompile(`\b(\d{1,2})[/-](20\d{2})\b`)
	yearRe         = regexp.MustCompile(`\b20\d{2}\b`)
	monthNameRe    = regexp.MustCompile(`(?i)\b(january|jan|february|feb|march|mar|april|apr|may|june|jun|july|jul|august|aug|september|sept|sep|october|oct|november|nov|december|dec)\b`)
)

// ParseDateQuery extracts an optional year and month from a search
// query and returns what remains. Supported forms: "2024", "June 2024",
// "2024 June", "Jun 2024", "06/2024", "06-2024".
//
// Matching order is deliberate and mirrors observed behavior: a numeric
// month/year token wins first, then a bare year, then a month name. A
// month name can overwrite the month from a numeric match (a query with
// two conflicting date expressions keeps the last month seen).
func ParseDateQuery(query string) ParsedQuery {
	cleanQuery := query
	year := 0
	month := 0

	// Numeric month format first (01/2024, 1/2024, 01-2024)
	if m := numericMonthRe.FindStringSubmatch(query); m != nil {
		parsedMonth, _ := strconv.Atoi(m[1])
		if parsedMonth >= 1 && parsedMonth <= 12 {
			month = parsedMonth
			year, _ = strconv.Atoi(m[2])
			cleanQuery = strings.TrimSpace(strings.Replace(cleanQuery, m[0], "", 1))
		}
	}

	// Bare year (2000-2099) if not already found
	if year == 0 {
		if m := yearRe.FindString(cleanQuery); m != "" {
			year, _ = strconv.Atoi(m)
			cleanQuery = strings.TrimSpace(strings.Replace(cleanQuery, m, "", 1))
		}
	}

	// Month name
	if m := monthNameRe.FindString(cleanQuery); m != "" {
		month = monthNames[strings.ToLower(m)]
		cleanQuery = strings.TrimSpace(strings.Replace(cleanQuery, m, "", 1))
	}

	// Collapse leftover whitespace
	cleanQuery = strings.Join(strings.Fields(cleanQuery), " ")

	return ParsedQuery{CleanQuery: cleanQuery, Year: year, Month: month}
}
