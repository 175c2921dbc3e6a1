package landmark

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind is the facial region a landmark point belongs to.
type Kind string

const (
	KindRightEye    Kind = "right_eye"
	KindLeftEye     Kind = "left_eye"
	KindNose        Kind = "nose"
	KindMouth       Kind = "mouth"
	KindFaceContour Kind = "face_contour"
	KindOther       Kind = "other"
)

// Kinds lists every valid kind in display order.
var Kinds = []Kind{KindRightEye, KindLeftEye, KindNose, KindMouth, KindFaceContour, KindOther}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Nosé" -> "Nose").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// splitCamel inserts an underscore at lower->upper case boundaries ("rightEye" -> "right_Eye").
func splitCamel(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// NormalizeKindName normalizes a kind name for lookup (no diacritics, snake_case, lowercase).
func NormalizeKindName(name string) string {
	name = RemoveDiacritics(strings.TrimSpace(name))
	name = splitCamel(name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	return name
}

// ParseKind resolves a kind from its canonical or legacy spelling
// ("right_eye", "rightEye", "Right Eye" all map to KindRightEye).
func ParseKind(name string) (Kind, error) {
	k := Kind(NormalizeKindName(name))
	if !k.Valid() {
		return "", fmt.Errorf("unknown landmark kind %q: %w", name, ErrInvalidInput)
	}
	return k, nil
}

// UnmarshalJSON accepts any spelling ParseKind understands.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("landmark kind must be a string: %w", ErrInvalidInput)
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
