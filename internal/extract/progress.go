package extract

import (
	"github.com/jhartinger/conceptmine/internal/models"
)

// ProgressFunc receives extraction progress in [0,100] with a phase label.
type ProgressFunc func(progress int, label string)

// ProcessWithProgress extracts text from data while reporting progress in
// three phases: reading maps to 0-20, parsing to 20-80, finalizing to
// 80-100. Progress is monotonically non-decreasing and ends at 100 on
// success.
func ProcessWithProgress(data []byte, format string, category models.FileCategory, report ProgressFunc) (string, error) {
	if report == nil {
		report = func(int, string) {}
	}

	report(0, "reading file")
	report(20, "parsing content")

	text, err := Convert(data, format, category)
	if err != nil {
		return "", err
	}

	report(80, "finalizing")
	report(100, "done")
	return text, nil
}
