package kitt

import "net/url"

// structural markers of the portal's html, any change to these on the
// portal side breaks parsing.
const (
	markerWeekContainer = ".lecture-week-container"
	markerWeekTitle     = ".week-title"
	markerLectureCard   = ".lecture-list-card"
	markerCardTitle     = ".lecture-title"
	markerCardLink      = ".lecture-card-link"
	attrCardLink        = "href"
	markerContentFrame  = "iframe#karr_source_0"
	attrContentFrame    = "src"
)

func lecturesPath(campId string) string {
	return "camps/" + url.PathEscape(campId) + "/lectures"
}
