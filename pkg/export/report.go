package export

import "time"

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is a titled table within a report.
type Section struct {
	Title string
	Data  Dataset
}

// Report is a titled, multi-section document rendered by the exporters.
type Report struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Sections    []Section
}

func (r Report) validate() error {
	if len(r.Sections) == 0 {
		return errNoSections
	}
	for _, section := range r.Sections {
		if len(section.Data.Headers) == 0 {
			return errNoHeaders
		}
	}
	return nil
}
