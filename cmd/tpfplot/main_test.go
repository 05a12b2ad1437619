package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalRef(t *testing.T) {
	require.Equal(t, "s3:tess/tpf.fits", localRef("s3:tess/tpf.fits"))
	require.Equal(t, "https://archive.stsci.edu/tpf.fits", localRef("https://archive.stsci.edu/tpf.fits"))

	got := localRef("tpf.fits")
	require.True(t, filepath.IsAbs(got))
	require.Equal(t, "tpf.fits", filepath.Base(got))
}

func TestPlotUnknownMode(t *testing.T) {
	_, err := plot("tpf", nil, "", nil, nil)
	require.EqualError(t, err, `unknown mode "tpf", use bkg, ffi or new`)
}

func TestPlotUndecodableSource(t *testing.T) {
	_, err := plot("bkg", []byte("not fits"), "", nil, nil)
	require.Error(t, err)
	_, err = plot("ffi", []byte("not fits"), "", nil, nil)
	require.Error(t, err)
}
