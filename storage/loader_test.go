package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tpf-render/config"
)

func newTestLoader(cfg *config.Config) *Loader {
	return NewLoader(zap.NewNop(), cfg, &S3Store{}, nil)
}

func TestLoadLocal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sector1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sector1", "tpf.fits"), []byte("SIMPLE"), 0o644))

	l := newTestLoader(&config.Config{LocalRoot: root})

	data, host, err := l.Load(context.Background(), "sector1/tpf.fits")
	require.NoError(t, err)
	require.Equal(t, "local", host)
	require.Equal(t, []byte("SIMPLE"), data)

	// Cleaned against the root, so this cannot escape it.
	_, _, err = l.Load(context.Background(), "../../etc/passwd")
	require.True(t, errors.Is(err, ErrNotFound))

	_, _, err = l.Load(context.Background(), "sector1/missing.fits")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadLocalDisabled(t *testing.T) {
	l := newTestLoader(&config.Config{})
	_, _, err := l.Load(context.Background(), "tpf.fits")
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestLoadLocalTooLarge(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.fits"), make([]byte, 2*1024*1024), 0o644))

	l := newTestLoader(&config.Config{LocalRoot: root, MaxUploadMB: 1})
	_, _, err := l.Load(context.Background(), "big.fits")
	require.True(t, errors.Is(err, ErrTooLarge))
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tpf.fits" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("SIMPLE"))
	}))
	defer srv.Close()

	l := newTestLoader(&config.Config{AllowedOrigins: []string{"127.0.0.*"}})

	data, host, err := l.Load(context.Background(), srv.URL+"/tpf.fits")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", host)
	require.Equal(t, []byte("SIMPLE"), data)

	_, _, err = l.Load(context.Background(), srv.URL+"/other.fits")
	require.True(t, errors.Is(err, ErrNotFound))

	l = newTestLoader(&config.Config{AllowedOrigins: []string{"archive.stsci.edu"}})
	_, _, err = l.Load(context.Background(), srv.URL+"/tpf.fits")
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestLoadS3Disabled(t *testing.T) {
	l := newTestLoader(&config.Config{})
	_, host, err := l.Load(context.Background(), "s3:tess/tpf.fits")
	require.Equal(t, "s3", host)
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestObjectKey(t *testing.T) {
	s := &S3Store{Prefix: "sources"}
	require.Equal(t, "sources/tess/a.fits", s.ObjectKey("/tess/a.fits"))
	require.Equal(t, "a.fits", (&S3Store{}).ObjectKey("a.fits"))
}
