package intent

import (
	"regexp"
	"strings"
)

// File types recognized by ExtractFileInfo.
const (
	FileTypeLecture          = "lecture"
	FileTypeHomework         = "homework"
	FileTypeHomeworkSolution = "homework_solution"
)

// FileInfo is the second-layer reading of a fetch-file request.
type FileInfo struct {
	FileType   string `json:"fileType"`
	FileNumber string `json:"fileNumber,omitempty"`
	CourseName string `json:"courseName,omitempty"`
}

var (
	digitRe    = regexp.MustCompile(`\b(\d+)\b`)
	solutionRe = regexp.MustCompile(`(?i)\b(solution|correction|corrigé)\b`)
	homeworkRe = regexp.MustCompile(`(?i)\b(devoir|homework|home\s*work|travail|serie|série)\b`)
	lectureRe  = regexp.MustCompile(`(?i)\b(lecture|leçon|lesson|cours)\b`)

	fromOfRe = regexp.MustCompile(`(?i)\b(from|of|du|de|dans|in|sur)\s+(?:the\s+)?([a-z][a-z\s-]{2,}?)(?:\s+(?:course|class|matiere|moodle))?$`)
	courseRe = regexp.MustCompile(`(?i)\b(?:le\s+|la\s+)?(?:cours|course|class|matiere)\s+(?:de\s+|du\s+)?([a-z][a-z\s-]+?)(?:\s+sur|\s+from|\s+of|\s+du|\s+de|$)`)
)

// ordinalWords maps spelled ordinals, English and French, to their digit
// form. "fetch the third homework" and "fetch homework 3" thus extract the
// same file number.
var ordinalWords = map[string]string{
	"first": "1", "second": "2", "third": "3", "fourth": "4", "fifth": "5",
	"sixth": "6", "seventh": "7", "eighth": "8", "ninth": "9", "tenth": "10",
	"1st": "1", "2nd": "2", "3rd": "3", "4th": "4", "5th": "5",
	"6th": "6", "7th": "7", "8th": "8", "9th": "9", "10th": "10",
	"premier": "1", "première": "1", "premiere": "1",
	"deuxième": "2", "deuxieme": "2",
	"troisième": "3", "troisieme": "3",
	"quatrième": "4", "quatrieme": "4",
	"cinquième": "5", "cinquieme": "5",
	"sixième": "6", "sixieme": "6",
	"septième": "7", "septieme": "7",
	"huitième": "8", "huitieme": "8",
	"neuvième": "9", "neuvieme": "9",
	"dixième": "10", "dixieme": "10",
}

// ExtractFileInfo reads the file type, number, and course name out of a
// fetch-file request. File type priority when several keywords appear is
// solution > homework > lecture; lecture is the default.
func ExtractFileInfo(question string) FileInfo {
	trimmed := strings.TrimSpace(question)

	info := FileInfo{
		FileType:   FileTypeLecture,
		FileNumber: extractFileNumber(trimmed),
		CourseName: extractCourseName(trimmed),
	}

	switch {
	case solutionRe.MatchString(trimmed):
		info.FileType = FileTypeHomeworkSolution
	case homeworkRe.MatchString(trimmed):
		info.FileType = FileTypeHomework
	}
	return info
}

// extractFileNumber returns the first numeric token, falling back to the
// first spelled ordinal.
func extractFileNumber(s string) string {
	if m := digitRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.Trim(word, ".,!?;:")
		if n, ok := ordinalWords[word]; ok {
			return n
		}
	}
	return ""
}

// commonWords are tokens that disqualify a course-name candidate.
var commonWordsRe = regexp.MustCompile(`(?i)\b(from|of|the|me|my|get|fetch|show|week|semaine|sur|on|moodle|donne|donner|first|second|third|fourth|fifth|homework|lecture|solution)\b`)

func extractCourseName(s string) string {
	if m := fromOfRe.FindStringSubmatch(s); m != nil {
		name := strings.TrimSpace(m[2])
		name = trailingNoiseRe.ReplaceAllString(name, "")
		if name != "" && !commonWordsRe.MatchString(name) {
			return strings.TrimSpace(name)
		}
	}
	if m := courseRe.FindStringSubmatch(s); m != nil {
		name := strings.TrimSpace(m[1])
		name = trailingNoiseRe.ReplaceAllString(name, "")
		if name != "" && !commonWordsRe.MatchString(name) {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

var trailingNoiseRe = regexp.MustCompile(`(?i)\s+(course|class|matiere|moodle|sur|on)$`)
