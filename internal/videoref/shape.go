package videoref

import "net/url"

// Shape is the URL path form recognised by detectShape.
type Shape int

const (
	ShapeUnsupported Shape = iota
	ShapeVideo
	ShapeBareID
	ShapeFestival
	ShapeBangumi
)

func (s Shape) String() string {
	switch s {
	case ShapeVideo:
		return "video"
	case ShapeBareID:
		return "bare_id"
	case ShapeFestival:
		return "festival"
	case ShapeBangumi:
		return "bangumi"
	default:
		return "unsupported"
	}
}

// detectShape inspects the first path segment (and the second for video
// pages). A ShapeUnsupported result always carries a skip reason.
func detectShape(segments []string, query url.Values) (Shape, string) {
	switch first := segments[0]; {
	case first == "video":
		if len(segments) < 2 {
			return ShapeUnsupported, ReasonMissingID
		}
		if !IsVideoID(segments[1]) {
			return ShapeUnsupported, ReasonMalformedID
		}
		return ShapeVideo, ""
	case IsVideoID(first):
		return ShapeBareID, ""
	case first == "festival":
		if !isCanonicalID(query.Get("bvid")) {
			return ShapeUnsupported, ReasonMissingFestival
		}
		return ShapeFestival, ""
	case first == "bangumi":
		return ShapeBangumi, ""
	default:
		return ShapeUnsupported, ReasonUnsupportedPath
	}
}
