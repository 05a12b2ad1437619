package pixelplot

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultStyleName selects DefaultStyle.
const DefaultStyleName = "lightkurve"

// Style is the subset of matplotlib rc parameters that affects pixel frame plots.
// Style sheets are YAML maps keyed by the rc names.
type Style struct {
	Name        string  `yaml:"-"`
	ColorMap    string  `yaml:"image.cmap"`
	FontSize    float64 `yaml:"font.size"`
	TitleSize   float64 `yaml:"axes.titlesize"`
	LabelSize   float64 `yaml:"axes.labelsize"`
	FaceColor   string  `yaml:"axes.facecolor"`
	FigureColor string  `yaml:"figure.facecolor"`
	EdgeColor   string  `yaml:"axes.edgecolor"`
	TextColor   string  `yaml:"text.color"`
	Grid        bool    `yaml:"axes.grid"`
	GridColor   string  `yaml:"grid.color"`
	DPI         float64 `yaml:"figure.dpi"`
}

// DefaultStyle is substituted whenever no style or DefaultStyleName is requested.
var DefaultStyle = Style{
	Name:        DefaultStyleName,
	ColorMap:    "kindlmann",
	FontSize:    11,
	TitleSize:   14,
	LabelSize:   13,
	FaceColor:   "white",
	FigureColor: "white",
	EdgeColor:   "black",
	TextColor:   "black",
	Grid:        false,
	GridColor:   "b0b0b0",
	DPI:         100,
}

var builtinStyles = map[string]Style{
	DefaultStyleName: DefaultStyle,
	"default": {
		ColorMap: "kindlmann", FontSize: 10, TitleSize: 12, LabelSize: 10,
		FaceColor: "white", FigureColor: "white", EdgeColor: "black", TextColor: "black",
		GridColor: "b0b0b0", DPI: 100,
	},
	"classic": {
		ColorMap: "blackbody_extended", FontSize: 12, TitleSize: 14, LabelSize: 12,
		FaceColor: "white", FigureColor: "0.75", EdgeColor: "black", TextColor: "black",
		GridColor: "black", DPI: 80,
	},
	"ggplot": {
		ColorMap: "kindlmann", FontSize: 10, TitleSize: 12, LabelSize: 12,
		FaceColor: "E5E5E5", FigureColor: "white", EdgeColor: "white", TextColor: "555555",
		Grid: true, GridColor: "white", DPI: 100,
	},
	"grayscale": {
		ColorMap: "gray", FontSize: 10, TitleSize: 12, LabelSize: 10,
		FaceColor: "white", FigureColor: "0.75", EdgeColor: "black", TextColor: "black",
		GridColor: "0.5", DPI: 100,
	},
	"dark_background": {
		ColorMap: "kindlmann", FontSize: 10, TitleSize: 12, LabelSize: 10,
		FaceColor: "black", FigureColor: "black", EdgeColor: "white", TextColor: "white",
		GridColor: "white", DPI: 100,
	},
	"fast": {
		ColorMap: "gray", FontSize: 10, TitleSize: 12, LabelSize: 10,
		FaceColor: "white", FigureColor: "white", EdgeColor: "black", TextColor: "black",
		GridColor: "b0b0b0", DPI: 72,
	},
}

// StyleLoader fetches the raw bytes of a style sheet given its path or URL.
type StyleLoader func(ref string) ([]byte, error)

// StyleNames lists the built-in style names.
func StyleNames() []string {
	names := make([]string, 0, len(builtinStyles))
	for name := range builtinStyles {
		names = append(names, name)
	}
	return names
}

// LoadStyle resolves a built-in style name, or reads a style sheet through load.
// A nil loader reads local files and plain http(s) URLs.
func LoadStyle(ref string, load StyleLoader) (*Style, error) {
	if ref == "" {
		ref = DefaultStyleName
	}
	if s, ok := builtinStyles[ref]; ok {
		s.Name = ref
		return &s, nil
	}

	if load == nil {
		load = readStyleSource
	}
	data, err := load(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load style %q: %w", ref, err)
	}
	return ParseStyle(ref, data)
}

// ParseStyle reads a YAML style sheet on top of the "default" style.
func ParseStyle(name string, data []byte) (*Style, error) {
	s := builtinStyles["default"]
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse style %q: %w", name, err)
	}
	s.Name = name
	if _, err := ColorMapByName(s.ColorMap); err != nil {
		return nil, err
	}
	return &s, nil
}

var styleClient = &http.Client{Timeout: 10 * time.Second}

func readStyleSource(ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return os.ReadFile(ref)
	}
	resp, err := styleClient.Get(ref)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
