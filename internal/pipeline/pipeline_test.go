package pipeline

import (
	"context"
	"errors"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kittexport/internal/components/chrono"
	"kittexport/internal/components/telemetry"
	"kittexport/internal/render"
	"kittexport/internal/scrapers/kitt"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	lectures []kitt.Lecture
	// failAt, when >= 0, yields err instead of the lecture at that index
	failAt int
	err    error
	pulled int
}

func (c *fakeCatalog) Lectures(context.Context, string) iter.Seq2[kitt.Lecture, error] {
	return func(yield func(kitt.Lecture, error) bool) {
		for i, lecture := range c.lectures {
			if i == c.failAt {
				yield(kitt.Lecture{}, c.err)
				return
			}
			c.pulled++
			if !yield(lecture, nil) {
				return
			}
		}
	}
}

type exportCall struct {
	url         string
	destination string
	format      render.Format
}

type fakeExporter struct {
	calls []exportCall
	fail  map[string]error
}

func (e *fakeExporter) Export(_ context.Context, contentUrl, destination string, format render.Format) error {
	e.calls = append(e.calls, exportCall{url: contentUrl, destination: destination, format: format})
	if err, ok := e.fail[contentUrl]; ok {
		return err
	}
	return os.WriteFile(destination, []byte(contentUrl), 0644)
}

func mustUrl(t testing.TB, raw string) *url.URL {
	t.Helper()
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	return parsed
}

func testLectures(t testing.TB) []kitt.Lecture {
	return []kitt.Lecture{
		{
			Week:        "Week 1",
			Name:        "Introduction",
			HomePageUrl: mustUrl(t, "https://portal.example/camps/1133/lectures/01-Intro"),
			ContentUrl:  mustUrl(t, "https://portal.example/content/intro.html"),
		},
		{
			Week:        "Week 1",
			Name:        "Setup",
			HomePageUrl: mustUrl(t, "https://portal.example/camps/1133/lectures/02-Setup"),
		},
		{
			Week:        "Week 2",
			Name:        "SQL",
			HomePageUrl: mustUrl(t, "https://portal.example/camps/1133/lectures/03-SQL"),
			ContentUrl:  mustUrl(t, "https://portal.example/content/sql.html"),
		},
	}
}

var testClock = chrono.FixedImpl{Time: time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)}

func TestExportAllSkipsLecturesWithoutContent(t *testing.T) {
	catalog := &fakeCatalog{lectures: testLectures(t), failAt: -1}
	exporter := &fakeExporter{}
	recorder := &telemetry.Recorder{}
	dir := filepath.Join(t.TempDir(), "out")

	report, err := New(catalog, exporter, testClock, recorder).ExportAll(context.Background(), Options{
		CampId:         "1133",
		DestinationDir: dir,
		Format:         render.FormatPDF,
	})
	require.NoError(t, err)

	require.Equal(t, []exportCall{
		{url: "https://portal.example/content/intro.html", destination: filepath.Join(dir, "intro.pdf"), format: render.FormatPDF},
		{url: "https://portal.example/content/sql.html", destination: filepath.Join(dir, "sql.pdf"), format: render.FormatPDF},
	}, exporter.calls)

	require.Len(t, report.Exported, 2)
	require.Len(t, report.Skipped, 1)
	require.Equal(t, "Setup", report.Skipped[0].Name)
	require.Empty(t, report.Failed)
	require.NotEmpty(t, report.RunId)
	require.Equal(t, testClock.Time, report.StartedAt)
	require.Equal(t, testClock.Time, report.FinishedAt)

	require.FileExists(t, filepath.Join(dir, "intro.pdf"))
	require.FileExists(t, filepath.Join(dir, "sql.pdf"))
	require.Len(t, recorder.Reports("info", "skipping lecture without content"), 1)
}

func TestExportAllCatalogErrorIsFatal(t *testing.T) {
	parseErr := &kitt.ParseError{Url: "https://portal.example/camps/1133/lectures", Marker: ".lecture-title"}
	catalog := &fakeCatalog{lectures: testLectures(t), failAt: 1, err: parseErr}
	exporter := &fakeExporter{}

	report, err := New(catalog, exporter, testClock, &telemetry.Recorder{}).ExportAll(context.Background(), Options{
		CampId:         "1133",
		DestinationDir: t.TempDir(),
		Format:         render.FormatPDF,
	})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, PhaseCatalog, stageErr.Phase)
	require.Nil(t, stageErr.Lecture)

	var gotParseErr *kitt.ParseError
	require.ErrorAs(t, err, &gotParseErr)

	require.Len(t, exporter.calls, 1)
	require.Len(t, report.Exported, 1)
}

func TestExportAllRenderErrorAbortsByDefault(t *testing.T) {
	catalog := &fakeCatalog{lectures: testLectures(t), failAt: -1}
	timeout := &render.RenderTimeoutError{Url: "https://portal.example/content/intro.html", Selector: "body", Timeout: time.Second}
	exporter := &fakeExporter{fail: map[string]error{
		"https://portal.example/content/intro.html": timeout,
	}}

	report, err := New(catalog, exporter, testClock, &telemetry.Recorder{}).ExportAll(context.Background(), Options{
		CampId:         "1133",
		DestinationDir: t.TempDir(),
		Format:         render.FormatPDF,
	})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, PhaseExport, stageErr.Phase)
	require.Equal(t, "Introduction", stageErr.Lecture.Name)
	require.Contains(t, err.Error(), "Introduction")
	require.Contains(t, err.Error(), "https://portal.example/content/intro.html")

	var gotTimeout *render.RenderTimeoutError
	require.ErrorAs(t, err, &gotTimeout)

	require.Len(t, exporter.calls, 1)
	require.Equal(t, 1, catalog.pulled)
	require.Empty(t, report.Exported)
}

func TestExportAllContinueOnError(t *testing.T) {
	catalog := &fakeCatalog{lectures: testLectures(t), failAt: -1}
	exporter := &fakeExporter{fail: map[string]error{
		"https://portal.example/content/intro.html": errors.New("boom"),
	}}
	dir := t.TempDir()

	report, err := New(catalog, exporter, testClock, &telemetry.Recorder{}).ExportAll(context.Background(), Options{
		CampId:          "1133",
		DestinationDir:  dir,
		Format:          render.FormatPDF,
		ContinueOnError: true,
	})
	require.NoError(t, err)

	require.Len(t, report.Failed, 1)
	require.Equal(t, "Introduction", report.Failed[0].Lecture.Name)
	require.Len(t, report.Exported, 1)
	require.Equal(t, filepath.Join(dir, "sql.pdf"), report.Exported[0].Path)
	require.NoFileExists(t, filepath.Join(dir, "intro.pdf"))
}

func TestExportAllUnsupportedFormat(t *testing.T) {
	catalog := &fakeCatalog{lectures: testLectures(t), failAt: -1}
	exporter := &fakeExporter{}
	dir := filepath.Join(t.TempDir(), "out")

	_, err := New(catalog, exporter, testClock, &telemetry.Recorder{}).ExportAll(context.Background(), Options{
		CampId:         "1133",
		DestinationDir: dir,
		Format:         render.Format("docx"),
	})

	var unsupported *render.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	require.Empty(t, exporter.calls)
	require.Zero(t, catalog.pulled)
	require.NoDirExists(t, dir)
}

func TestExportAllFileNameCollision(t *testing.T) {
	lectures := testLectures(t)
	lectures[2].ContentUrl = mustUrl(t, "https://portal.example/other/intro.html")
	catalog := &fakeCatalog{lectures: lectures, failAt: -1}
	exporter := &fakeExporter{}
	recorder := &telemetry.Recorder{}
	dir := t.TempDir()

	_, err := New(catalog, exporter, testClock, recorder).ExportAll(context.Background(), Options{
		CampId:         "1133",
		DestinationDir: dir,
		Format:         render.FormatPDF,
	})
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "intro.pdf"))
	require.NoError(t, err)
	require.Equal(t, "https://portal.example/other/intro.html", string(written))
	require.Len(t, recorder.Reports("warning", report_pipeline_file_name), 1)
}
