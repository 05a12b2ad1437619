// Package ffi holds full-frame image background archives.
package ffi

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"

	"tpf-render/fitsdata"
	"tpf-render/pixelplot"
)

const (
	cadenceHDU       = "cadenceno"
	backgroundsGroup = "backgrounds"
)

// Archive maps the keys of the backgrounds group to full-frame background images.
type Archive struct {
	cadences    []int
	backgrounds map[string]*mat.Dense
}

// New builds an archive storing backgrounds[i] under pixelplot.FrameKey(i).
func New(cadences []int, backgrounds []*mat.Dense) (*Archive, error) {
	a := &Archive{
		cadences:    cadences,
		backgrounds: make(map[string]*mat.Dense, len(backgrounds)),
	}
	for i, bkg := range backgrounds {
		if bkg == nil {
			return nil, fmt.Errorf("background %d is nil", i)
		}
		a.backgrounds[pixelplot.FrameKey(i)] = bkg
	}
	return a, nil
}

func (a *Archive) Cadences() []int { return a.cadences }

func (a *Archive) NumBackgrounds() int { return len(a.backgrounds) }

func (a *Archive) Background(key string) (mat.Matrix, bool) {
	bkg, ok := a.backgrounds[key]
	if !ok {
		return nil, false
	}
	return bkg, true
}

// Open reads an archive from a FITS file whose image extensions are named by their
// group path: "cadenceno" and "backgrounds/0000", "backgrounds/0001" and so on.
func Open(r io.Reader) (*Archive, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("open background archive: %w", err)
	}
	defer f.Close()

	a := &Archive{backgrounds: map[string]*mat.Dense{}}
	for _, hdu := range f.HDUs() {
		img, ok := hdu.(fitsio.Image)
		if !ok {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(hdu.Name()))
		switch {
		case name == cadenceHDU:
			_, values, err := fitsdata.ReadImage(img)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", cadenceHDU, err)
			}
			a.cadences = make([]int, len(values))
			for i, v := range values {
				a.cadences[i] = int(v)
			}
		case strings.HasPrefix(name, backgroundsGroup+"/"):
			key := strings.TrimPrefix(name, backgroundsGroup+"/")
			axes, values, err := fitsdata.ReadImage(img)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", name, err)
			}
			if len(axes) != 2 {
				return nil, fmt.Errorf("%s has %d axes, expected 2", name, len(axes))
			}
			a.backgrounds[key] = mat.NewDense(axes[1], axes[0], values)
		}
	}
	if a.cadences == nil {
		return nil, errors.New("background archive has no cadenceno image")
	}
	return a, nil
}

var _ pixelplot.BackgroundArchive = (*Archive)(nil)
