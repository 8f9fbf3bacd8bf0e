package pipeline

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	"kittexport/internal/components/assert"
	"kittexport/internal/components/chrono"
	"kittexport/internal/components/telemetry"
	"kittexport/internal/render"
	"kittexport/internal/scrapers/kitt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("kittexport/pipeline")
	meter  = otel.Meter("kittexport/pipeline")

	exportedCounter, _ = meter.Int64Counter("lectures_exported")
	skippedCounter, _  = meter.Int64Counter("lectures_skipped")
	failedCounter, _   = meter.Int64Counter("lectures_failed")
)

const (
	report_pipeline_export_all = "pipeline.export-all"
	report_pipeline_file_name  = "pipeline.file-name"
	report_pipeline_exported   = "pipeline.exported"
)

// Catalog streams the lectures of a camp.
type Catalog interface {
	Lectures(ctx context.Context, campId string) iter.Seq2[kitt.Lecture, error]
}

// Exporter renders a content url into a file.
type Exporter interface {
	Export(ctx context.Context, contentUrl, destination string, format render.Format) error
}

type Options struct {
	CampId         string
	DestinationDir string
	Format         render.Format
	// ContinueOnError makes a failed export get reported in Report.Failed
	// instead of ending the run. Catalog errors always end the run.
	ContinueOnError bool
}

// Outcome is what happened to a single lecture.
type Outcome struct {
	Lecture kitt.Lecture
	Path    string
	Err     error
}

type Report struct {
	RunId      string
	StartedAt  time.Time
	FinishedAt time.Time
	Exported   []Outcome
	Skipped    []kitt.Lecture
	Failed     []Outcome
}

type Pipeline struct {
	catalog  Catalog
	exporter Exporter
	clock    chrono.API
	tel      telemetry.API
}

func New(catalog Catalog, exporter Exporter, clock chrono.API, tel telemetry.API) Pipeline {
	assert.NotNil(catalog)
	assert.NotNil(exporter)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return Pipeline{
		catalog:  catalog,
		exporter: exporter,
		clock:    clock,
		tel:      telemetry.NewScopedAPI("pipeline", tel),
	}
}

// ExportAll exports every lecture of a camp that has content, one at a time
// and in catalog order. Lectures without content are skipped.
//
// The report is filled in as far as the run got, also when an error is returned.
func (p Pipeline) ExportAll(ctx context.Context, opts Options) (report Report, err error) {
	report = Report{
		RunId:     uuid.NewString(),
		StartedAt: p.clock.Now(),
	}
	defer func() {
		report.FinishedAt = p.clock.Now()
	}()

	ctx, span := tracer.Start(ctx, "pipeline:ExportAll")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", report.RunId),
		attribute.String("camp", opts.CampId),
		attribute.String("format", string(opts.Format)),
	)

	if !opts.Format.Valid() {
		return report, &render.UnsupportedFormatError{Format: string(opts.Format)}
	}
	if err := os.MkdirAll(opts.DestinationDir, 0755); err != nil {
		return report, fmt.Errorf("create destination directory: %w", err)
	}

	// file name -> lecture that claimed it, later lectures overwrite earlier ones
	claimed := map[string]string{}

	for lecture, err := range p.catalog.Lectures(ctx, opts.CampId) {
		if err != nil {
			p.tel.ReportBroken(report_pipeline_export_all, err)
			return report, &StageError{Phase: PhaseCatalog, Err: err}
		}

		if !lecture.HasContent() {
			p.tel.ReportInfo("skipping lecture without content", "week", lecture.Week, "lecture", lecture.Name)
			skippedCounter.Add(ctx, 1)
			report.Skipped = append(report.Skipped, lecture)
			continue
		}

		fileName := FileName(lecture.ContentUrl, opts.Format)
		if previous, ok := claimed[fileName]; ok {
			p.tel.ReportWarning(report_pipeline_file_name, "file name collision", fileName, previous, lecture.Name)
		}
		claimed[fileName] = lecture.Name
		destination := filepath.Join(opts.DestinationDir, fileName)

		p.tel.ReportInfo("saving lecture", "lecture", lecture.Name, "file", destination)
		err = p.exporter.Export(ctx, lecture.ContentUrl.String(), destination, opts.Format)
		if err != nil {
			failedCounter.Add(ctx, 1)
			exportErr := &StageError{Phase: PhaseExport, Lecture: &lecture, Err: err}
			if !opts.ContinueOnError {
				p.tel.ReportBroken(report_pipeline_export_all, exportErr)
				return report, exportErr
			}
			p.tel.ReportWarning(report_pipeline_export_all, exportErr)
			report.Failed = append(report.Failed, Outcome{Lecture: lecture, Path: destination, Err: exportErr})
			continue
		}

		exportedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("format", string(opts.Format))))
		report.Exported = append(report.Exported, Outcome{Lecture: lecture, Path: destination})
	}

	p.tel.ReportCount(report_pipeline_exported, int64(len(report.Exported)))
	return report, nil
}
