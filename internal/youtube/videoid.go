package youtube

import (
	"fmt"
	"regexp"
	"strings"

	"ytrag/internal/domain"
)

var (
	urlPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[A-Za-z0-9_-]{11}`)
	idPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// Validate reports whether ref is a watch URL, a short youtu.be URL or a bare video ID.
func Validate(ref string) bool {
	ref = strings.TrimSpace(ref)
	return urlPattern.MatchString(ref) || idPattern.MatchString(ref)
}

// ExtractID returns the canonical 11-character video ID carried by ref.
func ExtractID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !Validate(ref) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidReference, ref)
	}

	var id string
	switch {
	case idPattern.MatchString(ref):
		id = ref
	case strings.Contains(ref, "youtu.be"):
		id = ref[strings.LastIndex(ref, "/")+1:]
		id = cut(id, "?")
	case strings.Contains(ref, "v="):
		id = ref[strings.Index(ref, "v=")+len("v="):]
		id = cut(id, "&")
	}
	id = cut(id, "#")

	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", domain.ErrInvalidReference, ref)
	}
	return id, nil
}

func cut(s, sep string) string {
	before, _, _ := strings.Cut(s, sep)
	return before
}
