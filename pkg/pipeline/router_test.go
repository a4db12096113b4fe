package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func newRouterFixture(t *testing.T) (*Router, string, string, string) {
	t.Helper()
	base := t.TempDir()
	successDir := filepath.Join(base, "success")
	errorDir := filepath.Join(base, "error")
	for _, dir := range []string{successDir, errorDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	src := filepath.Join(base, "invoice.xml")
	if err := os.WriteFile(src, []byte("<Invoice/>"), 0644); err != nil {
		t.Fatal(err)
	}
	logger, _ := logrustest.NewNullLogger()
	return NewRouter(successDir, errorDir, logger.WithField("module", "test")), successDir, errorDir, src
}

func signedAndArtifact() (*etree.Document, *etree.Document) {
	signed := etree.NewDocument()
	signed.CreateElement("Invoice")
	artifact := etree.NewDocument()
	artifact.CreateElement("VerifyRequest")
	return signed, artifact
}

func TestRouter_Route(t *testing.T) {
	t.Run("success is placed exactly once, never also in error", func(t *testing.T) {
		router, successDir, errorDir, src := newRouterFixture(t)
		signed, artifact := signedAndArtifact()

		routedOK := router.Route(src, signed, artifact, &ErrorList{})

		assert.True(t, routedOK)
		assert.ElementsMatch(t, []string{"invoice.xml", "invoice.verifyrequest.xml"}, listNames(t, successDir))
		assert.Empty(t, listNames(t, errorDir))
		assert.NoFileExists(t, src, "the source must be consumed")
	})

	t.Run("a non-empty error list routes to error with the full report", func(t *testing.T) {
		router, successDir, errorDir, src := newRouterFixture(t)
		errs := &ErrorList{}
		errs.Add("first problem")
		errs.AddCause("second problem", os.ErrPermission)

		routedOK := router.Route(src, nil, nil, errs)

		assert.False(t, routedOK)
		assert.Empty(t, listNames(t, successDir))
		assert.ElementsMatch(t, []string{"invoice.xml", "invoice.error.txt"}, listNames(t, errorDir))
		assert.NoFileExists(t, src)

		report, err := os.ReadFile(filepath.Join(errorDir, "invoice.error.txt"))
		if assert.NoError(t, err) {
			assert.Contains(t, string(report), "first problem")
			assert.Contains(t, string(report), "second problem: permission denied")
		}

		original, err := os.ReadFile(filepath.Join(errorDir, "invoice.xml"))
		if assert.NoError(t, err) {
			assert.Equal(t, "<Invoice/>", string(original), "the error side keeps the original bytes for triage")
		}
	})

	t.Run("a failed success write falls through to the error destination", func(t *testing.T) {
		router, successDir, errorDir, src := newRouterFixture(t)
		// Remove the success directory so the write must fail.
		if err := os.RemoveAll(successDir); err != nil {
			t.Fatal(err)
		}
		signed, artifact := signedAndArtifact()

		routedOK := router.Route(src, signed, artifact, &ErrorList{})

		assert.False(t, routedOK)
		assert.ElementsMatch(t, []string{"invoice.xml", "invoice.error.txt"}, listNames(t, errorDir))
		assert.NoFileExists(t, src)

		report, err := os.ReadFile(filepath.Join(errorDir, "invoice.error.txt"))
		if assert.NoError(t, err) {
			assert.Contains(t, string(report), "failed to write the success output")
		}
	})

	t.Run("a failed artifact write leaves no stale signed document behind", func(t *testing.T) {
		router, successDir, errorDir, src := newRouterFixture(t)
		// A directory squatting on the artifact name makes only the second
		// write fail, after the signed document was already placed.
		if err := os.Mkdir(filepath.Join(successDir, "invoice.verifyrequest.xml"), 0755); err != nil {
			t.Fatal(err)
		}
		signed, artifact := signedAndArtifact()

		routedOK := router.Route(src, signed, artifact, &ErrorList{})

		assert.False(t, routedOK)
		assert.NoFileExists(t, filepath.Join(successDir, "invoice.xml"))
		assert.ElementsMatch(t, []string{"invoice.xml", "invoice.error.txt"}, listNames(t, errorDir))
		assert.NoFileExists(t, src)
	})

	t.Run("missing pipeline output is never a silent success", func(t *testing.T) {
		router, successDir, errorDir, src := newRouterFixture(t)

		routedOK := router.Route(src, nil, nil, &ErrorList{})

		assert.False(t, routedOK)
		assert.Empty(t, listNames(t, successDir))
		assert.ElementsMatch(t, []string{"invoice.xml", "invoice.error.txt"}, listNames(t, errorDir))
	})
}
