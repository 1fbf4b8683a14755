package reportgen

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

// Renderer produces report artifacts. It holds no per-report state and
// is safe for concurrent use.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r Renderer) Render(format models.ReportFormat, data *AuditData) ([]byte, error) {
	if data.Bundle == nil {
		return nil, errors.New("audit data has no findings bundle")
	}

	switch format {
	case models.FormatMarkdown:
		return r.renderMarkdown(data)
	case models.FormatHTML:
		return r.renderHTML(data)
	case models.FormatPDF:
		return r.renderPDF(data)
	case models.FormatJSON:
		return r.renderJSON(data)
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}
