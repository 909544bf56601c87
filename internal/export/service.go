package export

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/swot"
)

// DataStore loads what a report shows.
type DataStore interface {
	LoadPlan(ctx context.Context, planID string) (*swot.Plan, error)
	ListTrees(ctx context.Context, planID string) ([]*problemtree.Tree, error)
}

// Service provides plan report export functionality
type Service struct {
	store         DataStore
	artifacts     ArtifactStore
	urlTTL        time.Duration
	painThreshold float64
	now           func() time.Time
	renderPDF     func(ctx context.Context, html, title string) (*Result, error)
}

// NewService creates a new export service. artifacts may be nil, in which
// case reports can be rendered but not published.
func NewService(store DataStore, artifacts ArtifactStore, urlTTL time.Duration, painThreshold float64) *Service {
	return &Service{
		store:         store,
		artifacts:     artifacts,
		urlTTL:        urlTTL,
		painThreshold: painThreshold,
		now:           time.Now,
		renderPDF:     renderPDF,
	}
}

// CanPublish reports whether an object store is configured.
func (s *Service) CanPublish() bool {
	return s.artifacts != nil
}

// Export generates a report in the requested format
func (s *Service) Export(ctx context.Context, req Request) (result *Result, err error) {
	ctx, span := otel.Tracer("swotplan/export").Start(ctx, "export.Report",
		trace.WithAttributes(
			attribute.String("plan.id", req.PlanID),
			attribute.String("format", string(req.Format)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "export failed")
		}
		span.End()
	}()

	plan, err := s.store.LoadPlan(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	trees, err := s.store.ListTrees(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("list trees: %w", err)
	}

	data, err := BuildReport(plan, trees, s.painThreshold, s.now().UTC())
	if err != nil {
		return nil, err
	}
	html, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return s.renderPDF(ctx, html, plan.Name)
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(plan.Name) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

// Publish exports a report, stores it and returns a presigned download link.
func (s *Service) Publish(ctx context.Context, req Request) (Published, error) {
	if s.artifacts == nil {
		return Published{}, ErrStorageDisabled
	}
	result, err := s.Export(ctx, req)
	if err != nil {
		return Published{}, err
	}

	key := fmt.Sprintf("plans/%s/%s-%s", req.PlanID, s.now().UTC().Format("20060102T150405Z"), result.Filename)
	if err := s.artifacts.Put(ctx, key, result.Data, result.MimeType); err != nil {
		return Published{}, fmt.Errorf("store report: %w", err)
	}
	link, err := s.artifacts.PresignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return Published{}, fmt.Errorf("presign report: %w", err)
	}
	return Published{
		Key:       key,
		URL:       link,
		Filename:  result.Filename,
		MimeType:  result.MimeType,
		ExpiresIn: int(s.urlTTL.Seconds()),
	}, nil
}
