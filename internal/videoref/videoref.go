package videoref

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"danmaku/internal/bvid"
	"danmaku/internal/services"
)

const (
	canonicalHost = "www.bilibili.com"
	bareHost      = "bilibili.com"
)

// Kind identifies the identifier family of a resolved reference.
type Kind int

const (
	// KindCanonical is a BV identifier; no codec step is applied.
	KindCanonical Kind = iota
	// KindLegacyNumeric is an av<digits> identifier rewritten to BV form.
	KindLegacyNumeric
	// KindEpisode is a bangumi season or episode token passed through as-is.
	KindEpisode
)

func (k Kind) String() string {
	switch k {
	case KindCanonical:
		return "canonical"
	case KindLegacyNumeric:
		return "legacy_numeric"
	case KindEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// Action is the pipeline decision for a classified input.
type Action int

const (
	ActionSkip Action = iota
	ActionResolve
)

func (a Action) String() string {
	if a == ActionResolve {
		return "resolve"
	}
	return "skip"
}

// Skip reasons. They are informational only.
const (
	ReasonUnparseable     = "unparseable"
	ReasonNotHierarchical = "not_hierarchical"
	ReasonUnsupportedHost = "unsupported_host"
	ReasonNoPath          = "no_path"
	ReasonMissingID       = "missing_id"
	ReasonMalformedID     = "malformed_id"
	ReasonMissingFestival = "festival_without_bvid"
	ReasonUnsupportedPath = "unsupported_path"
	ReasonCodecOutOfRange = "codec_out_of_range"
)

// Ref is a resolved video reference.
type Ref struct {
	// VideoID is the identifier exactly as it appeared in the input.
	VideoID string
	Kind    Kind
	// SourceURL is the parsed input, after trailing slash trimming.
	SourceURL *url.URL
	// ResolvedURL is the URL given to the converter. Legacy identifiers are
	// already replaced by their BV form here.
	ResolvedURL string
	// Canonical is the BV identifier, empty for episode tokens.
	Canonical string
	// Token is the original last path segment, used to name the artifact.
	Token string
}

// Decision is the outcome of classifying one input.
type Decision struct {
	Action Action
	Shape  Shape
	Ref    Ref
	Reason string
}

// Resolved reports whether the decision carries a usable Ref.
func (d Decision) Resolved() bool {
	return d.Action == ActionResolve
}

func skip(shape Shape, reason string) Decision {
	return Decision{Action: ActionSkip, Shape: shape, Reason: reason}
}

// Classify maps raw to a Decision. Codec domain errors become a skip with
// ReasonCodecOutOfRange; use ClassifyStrict to observe them.
func Classify(raw string) Decision {
	decision, err := ClassifyStrict(raw)
	if err != nil {
		return skip(decision.Shape, ReasonCodecOutOfRange)
	}
	return decision
}

// ClassifyStrict is Classify, except that a legacy identifier outside the codec
// domain is returned as an error wrapping bvid.ErrOutOfRange.
func ClassifyStrict(raw string) (Decision, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	source, err := url.Parse(trimmed)
	if err != nil {
		return skip(ShapeUnsupported, ReasonUnparseable), nil
	}
	if source.Opaque != "" || source.Host == "" {
		return skip(ShapeUnsupported, ReasonNotHierarchical), nil
	}

	if host := strings.ToLower(source.Hostname()); host != canonicalHost && host != bareHost {
		return skip(ShapeUnsupported, ReasonUnsupportedHost), nil
	}

	segments := pathSegments(source.Path)
	if len(segments) == 0 {
		return skip(ShapeUnsupported, ReasonNoPath), nil
	}

	shape, reason := detectShape(segments, source.Query())
	var resolved *url.URL
	switch shape {
	case ShapeVideo:
		resolved = videoURL(segments[1], pageQuery(source.Query()))
	case ShapeBareID:
		resolved = videoURL(segments[0], pageQuery(source.Query()))
	case ShapeFestival:
		resolved = videoURL(source.Query().Get("bvid"), "")
	case ShapeBangumi:
		resolved = &url.URL{Scheme: "https", Host: canonicalHost, Path: "/" + strings.Join(segments, "/")}
	case ShapeUnsupported:
		return skip(shape, reason), nil
	default:
		return skip(ShapeUnsupported, ReasonUnsupportedPath), nil
	}

	return resolveToken(shape, source, resolved)
}

func resolveToken(shape Shape, source, resolved *url.URL) (Decision, error) {
	segments := pathSegments(resolved.Path)
	if len(segments) == 0 {
		return skip(shape, ReasonNoPath), nil
	}
	token := segments[len(segments)-1]
	ref := Ref{VideoID: token, SourceURL: source, Token: token}

	switch {
	case isLegacyID(token):
		aid, err := strconv.ParseUint(token[2:], 10, 64)
		if err != nil {
			return skip(shape, ReasonMalformedID), nil
		}
		canonical, err := bvid.Encode(aid)
		if err != nil {
			return skip(shape, ReasonCodecOutOfRange), services.Wrap(
				services.ErrValidation,
				"classify",
				"encode identifier",
				fmt.Sprintf("legacy identifier %s is outside the BV domain", token),
				err,
			)
		}
		segments[len(segments)-1] = canonical
		resolved.Path = "/" + strings.Join(segments, "/")
		ref.Kind = KindLegacyNumeric
		ref.Canonical = canonical
	case isCanonicalID(token):
		canonical := "BV" + token[2:]
		segments[len(segments)-1] = canonical
		resolved.Path = "/" + strings.Join(segments, "/")
		ref.Kind = KindCanonical
		ref.Canonical = canonical
	case shape == ShapeBangumi && isEpisodeToken(token):
		ref.Kind = KindEpisode
	default:
		return skip(shape, ReasonMalformedID), nil
	}

	ref.ResolvedURL = resolved.String()
	return Decision{Action: ActionResolve, Shape: shape, Ref: ref}, nil
}

func videoURL(id, rawQuery string) *url.URL {
	return &url.URL{Scheme: "https", Host: canonicalHost, Path: "/video/" + id, RawQuery: rawQuery}
}

// pageQuery keeps the multi-part page selector and drops everything else.
func pageQuery(values url.Values) string {
	page := strings.TrimSpace(values.Get("p"))
	if page == "" {
		return ""
	}
	if n, err := strconv.Atoi(page); err != nil || n <= 0 {
		return ""
	}
	return url.Values{"p": {page}}.Encode()
}

func pathSegments(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsVideoID reports whether s is an av<digits> or BV identifier.
func IsVideoID(s string) bool {
	return isLegacyID(s) || isCanonicalID(s)
}

func isLegacyID(s string) bool {
	if len(s) < 3 || !strings.EqualFold(s[:2], "av") {
		return false
	}
	for i := 2; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isCanonicalID(s string) bool {
	if len(s) != bvid.Length || !strings.EqualFold(s[:2], "bv") {
		return false
	}
	for i := 2; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// isEpisodeToken matches bangumi ep<digits>, ss<digits> and md<digits> tokens.
func isEpisodeToken(s string) bool {
	if len(s) < 3 {
		return false
	}
	switch strings.ToLower(s[:2]) {
	case "ep", "ss", "md":
	default:
		return false
	}
	_, err := strconv.ParseUint(s[2:], 10, 64)
	return err == nil
}

// IsOutOfRange reports whether err is a codec domain failure from ClassifyStrict.
func IsOutOfRange(err error) bool {
	return errors.Is(err, bvid.ErrOutOfRange)
}
