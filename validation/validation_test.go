package validation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"tpf-render/config"
)

func hexHMAC(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestCompareHmacForMessage_ValidAndInvalid(t *testing.T) {
	secret := "test-secret"
	ref := "https://archive.stsci.edu/tess/tpf.fits"
	msg := ref + "|" + "s3:models/bkg.fits"

	if !compareHmacForMessage(msg, hexHMAC(msg, secret), secret) {
		t.Fatalf("expected compareHmacForMessage to return true for valid signature")
	}
	if compareHmacForMessage(msg, "deadbeef", secret) {
		t.Fatalf("expected compareHmacForMessage to return false for invalid signature")
	}
	if compareHmacForMessage(msg, "not-hex", secret) {
		t.Fatalf("expected compareHmacForMessage to return false for malformed signature")
	}
}

func TestProcessRenderContextFromPath_URLSignature_Valid(t *testing.T) {
	logger := zap.NewNop()
	secret := "test-secret"
	cfg := &config.Config{
		HmacKey:        secret,
		AllowedOrigins: []string{"*.stsci.edu"},
	}

	ref := "https://archive.stsci.edu/tess/tpf.fits"
	pathParams := "f:3/m:pipeline/sig:" + hexHMAC(ref, secret) + "/" + encode(ref)

	ok, status, ctx, err := ProcessRenderContextFromPath(logger, pathParams, cfg)
	if !ok || status != http.StatusOK || err != nil {
		t.Fatalf("expected OK, got ok=%v status=%d err=%v", ok, status, err)
	}
	if ctx.Ref != ref || ctx.Hostname != "archive.stsci.edu" || ctx.Frame != 3 || ctx.Mask != "pipeline" {
		t.Fatalf("unexpected ctx: %+v", ctx)
	}
	if ctx.Format != "png" || !ctx.Colorbar {
		t.Fatalf("unexpected defaults: %+v", ctx)
	}
}

func TestProcessRenderContextFromPath_NewBackgroundSignature(t *testing.T) {
	logger := zap.NewNop()
	secret := "test-secret"
	cfg := &config.Config{HmacKey: secret}

	ref := "s3:tess/s01/tpf.fits"
	nb := "s3:models/s01/bkg.fits"
	sig := hexHMAC(ref+"|"+nb, secret)
	pathParams := "nb:" + encode(nb) + "/sig:" + sig + "/" + encode(ref)

	ok, status, ctx, err := ProcessRenderContextFromPath(logger, pathParams, cfg)
	if !ok || status != http.StatusOK || err != nil {
		t.Fatalf("expected OK, got ok=%v status=%d err=%v", ok, status, err)
	}
	if ctx.NewBkgRef != nb || ctx.Hostname != "s3" {
		t.Fatalf("unexpected ctx: %+v", ctx)
	}

	// signature over the source reference alone does not cover the new background
	pathParams = "nb:" + encode(nb) + "/sig:" + hexHMAC(ref, secret) + "/" + encode(ref)
	ok, status, _, err = ProcessRenderContextFromPath(logger, pathParams, cfg)
	if ok || status != http.StatusForbidden || err == nil {
		t.Fatalf("expected forbidden, got ok=%v status=%d err=%v", ok, status, err)
	}
}

func TestProcessRenderContextFromPath_MissingSignature(t *testing.T) {
	logger := zap.NewNop()
	cfg := &config.Config{HmacKey: "test-secret"}

	ok, status, _, err := ProcessRenderContextFromPath(logger, encode("s3:tess/tpf.fits"), cfg)
	if ok || status != http.StatusForbidden || err == nil {
		t.Fatalf("expected forbidden due to missing signature, got ok=%v status=%d err=%v", ok, status, err)
	}
}

func TestProcessRenderContextFromPath_InvalidSignature(t *testing.T) {
	logger := zap.NewNop()
	cfg := &config.Config{HmacKey: "test-secret"}

	ok, status, _, err := ProcessRenderContextFromPath(logger, "sig:deadbeef/"+encode("s3:tess/tpf.fits"), cfg)
	if ok || status != http.StatusForbidden || err == nil {
		t.Fatalf("expected forbidden due to invalid signature, got ok=%v status=%d err=%v", ok, status, err)
	}
}

func TestProcessRenderContextFromPath_OriginNotAllowed(t *testing.T) {
	logger := zap.NewNop()
	cfg := &config.Config{AllowedOrigins: []string{"archive.stsci.edu"}}

	ok, status, _, err := ProcessRenderContextFromPath(logger, encode("https://example.com/tpf.fits"), cfg)
	if ok || status != http.StatusForbidden || err == nil {
		t.Fatalf("expected forbidden origin, got ok=%v status=%d err=%v", ok, status, err)
	}
}

func TestProcessRenderContextFromPath_LocalSources(t *testing.T) {
	logger := zap.NewNop()

	ok, status, _, _ := ProcessRenderContextFromPath(logger, encode("sector1/tpf.fits"), &config.Config{})
	if ok || status != http.StatusForbidden {
		t.Fatalf("expected local sources to be forbidden without a root, got ok=%v status=%d", ok, status)
	}

	cfg := &config.Config{LocalRoot: "/data"}
	ok, status, ctx, err := ProcessRenderContextFromPath(logger, encode("/sector1/tpf.fits"), cfg)
	if !ok || status != http.StatusOK || err != nil {
		t.Fatalf("expected OK, got ok=%v status=%d err=%v", ok, status, err)
	}
	if ctx.Ref != "sector1/tpf.fits" || ctx.Hostname != "local" {
		t.Fatalf("unexpected ctx: %+v", ctx)
	}

	ok, status, _, _ = ProcessRenderContextFromPath(logger, encode("../etc/passwd"), cfg)
	if ok || status != http.StatusBadRequest {
		t.Fatalf("expected traversal to be rejected, got ok=%v status=%d", ok, status)
	}
}

func TestProcessRenderContextFromPath_BadParameters(t *testing.T) {
	logger := zap.NewNop()
	cfg := &config.Config{}
	ref := encode("s3:tess/tpf.fits")

	cases := map[string]string{
		"frame":        "f:abc/" + ref,
		"cut":          "cut:1,2,3/" + ref,
		"stretch":      "sc:cubic/" + ref,
		"limits":       "vmin:5/" + ref,
		"inverted":     "vmin:5/vmax:1/" + ref,
		"style":        "st:solarized/" + ref,
		"mask color":   "mc:notacolor/" + ref,
		"mask":         "m:circle/" + ref,
		"format":       "fmt:gif/" + ref,
		"no reference": "f:1/m:all",
	}
	for name, pathParams := range cases {
		ok, status, _, err := ProcessRenderContextFromPath(logger, pathParams, cfg)
		if ok || status != http.StatusBadRequest || err == nil {
			t.Errorf("%s: expected bad request, got ok=%v status=%d err=%v", name, ok, status, err)
		}
	}
}

func TestProcessRenderContextFromPath_WebpDefault(t *testing.T) {
	logger := zap.NewNop()
	ref := encode("s3:tess/tpf.fits")

	ok, _, ctx, err := ProcessRenderContextFromPath(logger, ref, &config.Config{Webp: true})
	if !ok || err != nil || ctx.Format != "webp" {
		t.Fatalf("expected webp default, got ok=%v err=%v ctx=%+v", ok, err, ctx)
	}

	ok, _, ctx, err = ProcessRenderContextFromPath(logger, "fmt:tiff/"+ref, &config.Config{Webp: true})
	if !ok || err != nil || ctx.Format != "tiff" {
		t.Fatalf("expected explicit tiff, got ok=%v err=%v ctx=%+v", ok, err, ctx)
	}
}

func TestProcessUploadFromPath(t *testing.T) {
	logger := zap.NewNop()
	secret := "test-secret"
	cfg := &config.Config{HmacKey: secret, Token: "upload-token"}

	ok, status, ctx, err := ProcessUploadFromPath(logger, "t:upload-token/f:2", cfg)
	if !ok || status != http.StatusOK || err != nil {
		t.Fatalf("expected OK, got ok=%v status=%d err=%v", ok, status, err)
	}
	if ctx.Frame != 2 || ctx.CustomObjectKey != "" {
		t.Fatalf("unexpected ctx: %+v", ctx)
	}

	ok, status, _, _ = ProcessUploadFromPath(logger, "t:wrong/f:2", cfg)
	if ok || status != http.StatusForbidden {
		t.Fatalf("expected forbidden token, got ok=%v status=%d", ok, status)
	}

	location := "uploads/tess/tpf.fits"
	pathParams := "loc:" + encode(location) + "/sig:" + hexHMAC(location, secret)
	ok, status, ctx, err = ProcessUploadFromPath(logger, pathParams, cfg)
	if !ok || status != http.StatusOK || err != nil {
		t.Fatalf("expected OK, got ok=%v status=%d err=%v", ok, status, err)
	}
	if ctx.CustomObjectKey != location {
		t.Fatalf("unexpected ctx: %+v", ctx)
	}
}

func TestSanitizeLocation(t *testing.T) {
	got, err := sanitizeLocation("/tess/s01/tpf.fits")
	if err != nil || got != "tess/s01/tpf.fits" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	for _, bad := range []string{"", "../x", "a\\b", "a b", "tess?x"} {
		if _, err := sanitizeLocation(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
