package kitt

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"kittexport/internal/components/assert"
	"kittexport/internal/components/telemetry"
	"kittexport/lib/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_catalog_lectures     = "catalog.lectures"
	report_catalog_content_link = "catalog.content-link"
)

// Fetcher is what Catalog needs from Client.
//
// note: fault injection point
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
	Resolve(ref string) (*url.URL, error)
}

// Catalog discovers the lectures of a camp.
type Catalog struct {
	fetcher Fetcher
	tel     telemetry.API
}

func NewCatalog(fetcher Fetcher, tel telemetry.API) Catalog {
	assert.NotNil(fetcher)
	assert.NotNil(tel)
	return Catalog{
		fetcher: fetcher,
		tel:     telemetry.NewScopedAPI("kitt_catalog", tel),
	}
}

// Lectures lazily walks the lecture listing of a camp, yielding lectures in
// week order then card order. Each lecture costs one extra request (its home
// page) which is only made when the consumer asks for that lecture.
//
// The first error is yielded once and ends the traversal, a lecture is never
// skipped. Ranging over the sequence again starts over and refetches everything.
func (c Catalog) Lectures(ctx context.Context, campId string) iter.Seq2[Lecture, error] {
	return func(yield func(Lecture, error) bool) {
		ctx, span := tracer.Start(ctx, "catalog:Lectures")
		defer span.End()
		span.SetAttributes(attribute.String("camp", campId))

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "traversal aborted")
			c.tel.ReportBroken(report_catalog_lectures, err, campId)
			yield(Lecture{}, err)
		}

		listingUrl, err := c.fetcher.Resolve(lecturesPath(campId))
		if err != nil {
			fail(err)
			return
		}
		listing := listingUrl.String()

		body, err := c.fetcher.Fetch(ctx, listing)
		if err != nil {
			fail(err)
			return
		}
		doc, err := htmlutil.ParseString(body)
		if err != nil {
			fail(fmt.Errorf("kitt: parse %s: %w", listing, err))
			return
		}

		weeks := doc.FindAll(markerWeekContainer)
		if len(weeks) == 0 {
			// an expired cookie is redirected to a login page on the same host
			c.tel.ReportWarning(
				report_catalog_lectures,
				fmt.Errorf("no %s on %s, the camp is empty or the session cookie has expired", markerWeekContainer, listing),
			)
		}

		var count int64
		for weekIdx, week := range weeks {
			titleNode, ok := week.FindFirst(markerWeekTitle)
			if !ok {
				fail(&ParseError{
					Url:     listing,
					Marker:  markerWeekTitle,
					Context: fmt.Sprintf("week %d", weekIdx+1),
				})
				return
			}
			weekTitle := htmlutil.Normalize(titleNode.Text())

			for cardIdx, card := range week.FindAll(markerLectureCard) {
				lecture, err := c.parseCard(ctx, listing, weekTitle, cardIdx, card)
				if err != nil {
					fail(err)
					return
				}
				count++
				span.AddEvent("lecture", trace.WithAttributes(
					attribute.String("week", lecture.Week),
					attribute.String("name", lecture.Name),
				))
				if !yield(lecture, nil) {
					return
				}
			}
		}
		c.tel.ReportCount(report_catalog_lectures, count)
	}
}

// ListLectures collects Lectures into a slice, it stops at the first error.
func (c Catalog) ListLectures(ctx context.Context, campId string) ([]Lecture, error) {
	var lectures []Lecture
	for lecture, err := range c.Lectures(ctx, campId) {
		if err != nil {
			return nil, err
		}
		lectures = append(lectures, lecture)
	}
	return lectures, nil
}

func (c Catalog) parseCard(ctx context.Context, listing, week string, cardIdx int, card htmlutil.Query) (Lecture, error) {
	location := fmt.Sprintf("week %q, card %d", week, cardIdx+1)

	titleNode, ok := card.FindFirst(markerCardTitle)
	if !ok {
		return Lecture{}, &ParseError{Url: listing, Marker: markerCardTitle, Context: location}
	}
	title := htmlutil.Normalize(titleNode.Text())
	c.tel.ReportInfo("processing lecture", "week", week, "title", title)

	linkNode, ok := card.FindFirst(markerCardLink)
	if !ok {
		return Lecture{}, &ParseError{Url: listing, Marker: markerCardLink, Context: location}
	}
	href, _ := linkNode.Attr(attrCardLink)
	if strings.TrimSpace(href) == "" {
		return Lecture{}, &ParseError{
			Url:     listing,
			Marker:  markerCardLink + "[" + attrCardLink + "]",
			Context: location,
		}
	}
	homePage, err := c.fetcher.Resolve(href)
	if err != nil {
		return Lecture{}, err
	}

	contentUrl, err := c.contentUrl(ctx, homePage.String())
	if err != nil {
		return Lecture{}, fmt.Errorf("lecture %q: %w", title, err)
	}

	lecture := Lecture{
		Week:        week,
		Name:        title,
		HomePageUrl: homePage,
		ContentUrl:  contentUrl,
	}
	c.tel.ReportDebug("parsed lecture", lecture.String())
	return lecture, nil
}

// contentUrl follows a lecture home page to the frame holding its material,
// a nil url with a nil error means the lecture has no online content.
func (c Catalog) contentUrl(ctx context.Context, homePage string) (*url.URL, error) {
	body, err := c.fetcher.Fetch(ctx, homePage)
	if err != nil {
		return nil, err
	}
	doc, err := htmlutil.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("kitt: parse %s: %w", homePage, err)
	}

	frame, ok := doc.FindFirst(markerContentFrame)
	if !ok {
		c.tel.ReportDebug(report_catalog_content_link, "no content frame", homePage)
		return nil, nil
	}
	src, _ := frame.Attr(attrContentFrame)
	if strings.TrimSpace(src) == "" {
		c.tel.ReportWarning(report_catalog_content_link, "content frame without src", homePage)
		return nil, nil
	}
	return c.fetcher.Resolve(src)
}
