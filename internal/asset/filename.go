package asset

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	// maxNameParts is the number of path segments used in a filename.
	maxNameParts = 3

	// maxFilenameLength triggers shortening of the descriptive part.
	maxFilenameLength = 100

	// shortBaseLength is the descriptive part length after shortening.
	shortBaseLength = 50

	// hashSuffixLength is the number of hash characters in a filename.
	hashSuffixLength = 8
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9\-_]`)

// Filename derives a descriptive, collision-resistant name for an asset.
//
// The name is built from up to three meaningful URL path segments, last
// segment first, followed by the first eight hash characters and an
// extension. Normalized images always get ".jpg". Otherwise the URL
// extension is kept when it is a known image extension, then the content
// type decides, then ".jpg".
func Filename(rawURL, hash, contentType string, isLogo, normalized bool) string {
	p := ""
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}

	ext := strings.ToLower(path.Ext(p))
	switch {
	case normalized:
		ext = ".jpg"
	case imageExtensions[ext] != "":
	case typeExtensions[contentType] != "":
		ext = typeExtensions[contentType]
	default:
		ext = ".jpg"
	}

	segments := strings.Split(strings.TrimSuffix(p, path.Ext(p)), "/")
	parts := make([]string, 0, maxNameParts)
	for i := len(segments) - 1; i >= 0 && len(parts) < maxNameParts; i-- {
		clean := unsafeNameChars.ReplaceAllString(strings.ToLower(segments[i]), "")
		if len(clean) > 2 {
			parts = append(parts, clean)
		}
	}
	if len(parts) == 0 {
		if isLogo {
			parts = append(parts, "logo")
		} else {
			parts = append(parts, "image")
		}
	}

	suffix := hash
	if len(suffix) > hashSuffixLength {
		suffix = suffix[:hashSuffixLength]
	}

	base := strings.Join(parts, "-")
	name := base + "-" + suffix + ext
	if len(name) > maxFilenameLength {
		name = base[:shortBaseLength] + "-" + suffix + ext
	}
	return name
}

// Key returns the storage key of an asset file.
func Key(filename string, isLogo bool) string {
	if isLogo {
		return "media/logos/" + filename
	}
	return "media/" + filename
}
