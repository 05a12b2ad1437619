package mime

const (
	FormatPNG  = "png"
	FormatWebp = "webp"
	FormatTIFF = "tiff"
	FormatBMP  = "bmp"
)

var outputMimeTypes = map[string]string{
	FormatPNG:  "image/png",
	FormatWebp: "image/webp",
	FormatTIFF: "image/tiff",
	FormatBMP:  "image/bmp",
}

var sourceMimeTypes = []string{
	"application/fits",
	"image/fits",
	"application/x-fits",
	"application/octet-stream",
}

// OutputMime returns the content type of a rendered image format.
func OutputMime(format string) (string, bool) {
	mimeType, ok := outputMimeTypes[format]
	return mimeType, ok
}

func IsSourceMime(mimeType string) bool {
	for _, sourceMimeType := range sourceMimeTypes {
		if mimeType == sourceMimeType {
			return true
		}
	}

	return false
}
