package models

import (
	"encoding/json"
	"fmt"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

type ReportFormat string

const (
	FormatPDF      ReportFormat = "pdf"
	FormatHTML     ReportFormat = "html"
	FormatMarkdown ReportFormat = "markdown"
	FormatJSON     ReportFormat = "json"
)

// AllFormats in canonical order.
var AllFormats = []ReportFormat{FormatPDF, FormatHTML, FormatMarkdown, FormatJSON}

func ParseFormat(s string) (ReportFormat, error) {
	f := ReportFormat(s)
	switch f {
	case FormatPDF, FormatHTML, FormatMarkdown, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Ext is the artifact file extension: "md" for markdown, the format
// name otherwise.
func (f ReportFormat) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

func (f ReportFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusGenerating ReportStatus = "generating"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusCompleted || s == ReportStatusFailed
}

type Report struct {
	gorm.Model

	ContractID uint `gorm:"index"`
	AnalysisID uint `gorm:"index"`

	Status ReportStatus `gorm:"index"`

	// JSON columns; use the typed accessors below.
	RequestedFormatsJSON json.RawMessage `gorm:"type:text"`
	AvailableFormatsJSON json.RawMessage `gorm:"type:text"`
	FilePathsJSON        json.RawMessage `gorm:"type:text"`

	Summary string `gorm:"type:text"`
	Error   string
}

func (r *Report) RequestedFormats() ([]ReportFormat, error) {
	return r.formats(r.RequestedFormatsJSON, "requested")
}

func (r *Report) SetRequestedFormats(formats []ReportFormat) error {
	data, err := json.Marshal(formats)
	if err != nil {
		return errors.Wrapf(err, "can't marshal requested formats of report %d", r.ID)
	}
	r.RequestedFormatsJSON = data
	return nil
}

func (r *Report) AvailableFormats() ([]ReportFormat, error) {
	return r.formats(r.AvailableFormatsJSON, "available")
}

func (r *Report) SetAvailableFormats(formats []ReportFormat) error {
	if formats == nil {
		formats = []ReportFormat{}
	}
	data, err := json.Marshal(formats)
	if err != nil {
		return errors.Wrapf(err, "can't marshal available formats of report %d", r.ID)
	}
	r.AvailableFormatsJSON = data
	return nil
}

func (r *Report) formats(raw json.RawMessage, kind string) ([]ReportFormat, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var formats []ReportFormat
	if err := json.Unmarshal(raw, &formats); err != nil {
		return nil, errors.Wrapf(err, "can't unmarshal %s formats of report %d", kind, r.ID)
	}
	return formats, nil
}

func (r *Report) FilePaths() (map[ReportFormat]string, error) {
	if len(r.FilePathsJSON) == 0 {
		return map[ReportFormat]string{}, nil
	}

	var paths map[ReportFormat]string
	if err := json.Unmarshal(r.FilePathsJSON, &paths); err != nil {
		return nil, errors.Wrapf(err, "can't unmarshal file paths of report %d", r.ID)
	}
	return paths, nil
}

func (r *Report) SetFilePaths(paths map[ReportFormat]string) error {
	data, err := json.Marshal(paths)
	if err != nil {
		return errors.Wrapf(err, "can't marshal file paths of report %d", r.ID)
	}
	r.FilePathsJSON = data
	return nil
}
