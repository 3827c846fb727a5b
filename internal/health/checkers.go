package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zsiec/webpanel/pkg/version"
)

// TemplateSource loads the dashboard template without rendering it.
type TemplateSource interface {
	Check() error
	TemplateName() string
}

// TemplateChecker reports down when the dashboard template cannot be
// loaded or parsed.
type TemplateChecker struct {
	source TemplateSource
}

// NewTemplateChecker creates a checker for source.
func NewTemplateChecker(source TemplateSource) *TemplateChecker {
	return &TemplateChecker{source: source}
}

func (c *TemplateChecker) Name() string { return "template" }

func (c *TemplateChecker) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.source.Check(); err != nil {
		return fmt.Errorf("template %s: %w", c.source.TemplateName(), err)
	}
	return nil
}

// DashboardChecker probes the dashboard URL. An unreachable dashboard only
// degrades health; webviews still render and show their own error state.
type DashboardChecker struct {
	url    func() string
	client *http.Client
}

// NewDashboardChecker probes whatever url returns at check time, so
// settings changes are picked up.
func NewDashboardChecker(url func() string, client *http.Client) *DashboardChecker {
	if client == nil {
		client = &http.Client{Timeout: checkTimeout}
	}
	return &DashboardChecker{url: url, client: client}
}

func (c *DashboardChecker) Name() string { return "dashboard" }

func (c *DashboardChecker) Check(ctx context.Context) error {
	target := c.url()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Degraded(fmt.Errorf("invalid dashboard url %q: %w", target, err))
	}
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return Degraded(fmt.Errorf("dashboard unreachable: %w", err))
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Degraded(fmt.Errorf("dashboard returned %d", resp.StatusCode))
	}
	return nil
}
