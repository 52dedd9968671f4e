package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/vcode/internal/models"
)

func TestExtractor_Extract(t *testing.T) {
	e := New(nil)

	t.Run("labelled code is high confidence", func(t *testing.T) {
		a := e.Extract("Hi,\nYour verification code is 482913. It expires in 15 minutes.", "Sign-in code")

		assert.Equal(t, models.ArtifactCode, a.Kind)
		assert.Equal(t, "482913", a.Value)
		assert.Equal(t, models.ConfidenceHigh, a.Confidence)
		assert.Equal(t, 0, a.PatternIndex)
		assert.Equal(t, "Your verification code is 482913.", a.Context)
	})

	t.Run("rejects runs outside four to eight digits", func(t *testing.T) {
		for _, body := range []string{
			"Your code is 123 and it is valid now",
			"Your verification code is 123456789 and it is valid now",
		} {
			a := e.Extract(body, "Your code")
			assert.Equal(t, models.ArtifactNone, a.Kind, body)
			assert.Equal(t, models.ConfidenceNone, a.Confidence)
			assert.Equal(t, -1, a.PatternIndex)
		}
	})

	t.Run("service link outranks code", func(t *testing.T) {
		body := "Your code is 4821.\nOr tap https://www.netflix.com/account/travel/verify?nftoken=abc123 to get access."
		a := e.Extract(body, "Netflix: your temporary access code")

		assert.Equal(t, models.ArtifactLink, a.Kind)
		assert.Equal(t, models.ConfidenceHigh, a.Confidence)
		assert.Equal(t, "https://www.netflix.com/account/travel/verify?nftoken=abc123", a.Value)
	})

	t.Run("generic link near verification words", func(t *testing.T) {
		a := e.Extract("Please confirm your email address: https://example.com/c?t=abc.", "Welcome")

		assert.Equal(t, models.ArtifactLink, a.Kind)
		assert.Equal(t, models.ConfidenceMedium, a.Confidence)
		assert.Equal(t, GenericLinkNearVocabulary, a.PatternIndex)
		assert.Equal(t, "https://example.com/c?t=abc", a.Value)
	})

	t.Run("generic link inside href", func(t *testing.T) {
		body := `<html><body><p>Hello</p><a href="https://example.com/go?id=9">Open</a></body></html>`
		a := e.Extract(body, "Hello")

		assert.Equal(t, models.ArtifactLink, a.Kind)
		assert.Equal(t, GenericLinkInHref, a.PatternIndex)
	})

	t.Run("noise links are ignored", func(t *testing.T) {
		a := e.Extract("To sign in to preferences visit https://example.com/unsubscribe?u=1", "News")
		assert.Equal(t, models.ArtifactNone, a.Kind)
	})

	t.Run("service html block", func(t *testing.T) {
		body := `<html><head><style>.x{color:red}</style></head><body>
			<p>Hi there</p>
			<table><tr><td class="lrg-number">5823</td></tr></table>
			<p>&copy; 2024 Netflix</p></body></html>`
		a := e.Extract(body, "Your Netflix sign-in code")

		assert.Equal(t, models.ArtifactCode, a.Kind)
		assert.Equal(t, "5823", a.Value)
		assert.NotContains(t, a.Context, "color")
	})

	t.Run("bold html code keeps the high tier", func(t *testing.T) {
		for _, body := range []string{
			"<html><body><p>Your verification code is <strong>482913</strong></p></body></html>",
			"<html><body><p>Your code is <b>482913</b>.</p></body></html>",
		} {
			a := e.Extract(body, "Your sign-in code")

			assert.Equal(t, "482913", a.Value, body)
			assert.Equal(t, models.ConfidenceHigh, a.Confidence, body)
			assert.Contains(t, a.Context, "482913", body)
			assert.NotContains(t, a.Context, "*", body)
		}
	})

	t.Run("quoted printable soft breaks", func(t *testing.T) {
		a := e.Extract("Your code is =\r\n771204.", "Code")
		assert.Equal(t, "771204", a.Value)
	})

	t.Run("entities", func(t *testing.T) {
		a := e.Extract("Your code&nbsp;is 7734", "Code")
		assert.Equal(t, "7734", a.Value)
		assert.Equal(t, models.ConfidenceHigh, a.Confidence)
	})

	t.Run("years are not low tier codes", func(t *testing.T) {
		a := e.Extract("Copyright 2024 Example Inc", "News")
		assert.Equal(t, models.ArtifactNone, a.Kind)
	})

	t.Run("digits inside urls are skipped", func(t *testing.T) {
		a := e.Extract("see https://example.org/path/123456/x", "News")
		assert.NotEqual(t, models.ArtifactCode, a.Kind)
	})
}

func TestExtractor_ExtractMessage(t *testing.T) {
	e := New(nil)

	t.Run("plain text message", func(t *testing.T) {
		raw := "From: info@account.netflix.com\r\n" +
			"To: shared@example.com\r\n" +
			"Subject: Your sign-in code\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"Enter this code to sign in: 3391.\r\n"

		a, preview, err := e.ExtractMessage([]byte(raw), "")
		require.NoError(t, err)
		assert.Equal(t, "3391", a.Value)
		assert.Equal(t, models.ConfidenceMedium, a.Confidence)
		assert.Contains(t, preview, "Enter this code")
	})

	t.Run("html alternative preferred", func(t *testing.T) {
		raw := "Subject: Disney+ one-time passcode\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: multipart/alternative; boundary=XX\r\n" +
			"\r\n" +
			"--XX\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"Open the app.\r\n" +
			"--XX\r\n" +
			"Content-Type: text/html; charset=utf-8\r\n" +
			"\r\n" +
			"<html><body><a href=\"https://www.disneyplus.com/verify?code=abc\">Verify</a></body></html>\r\n" +
			"--XX--\r\n"

		a, _, err := e.ExtractMessage([]byte(raw), "Disney+ one-time passcode")
		require.NoError(t, err)
		assert.Equal(t, models.ArtifactLink, a.Kind)
		assert.Equal(t, "https://www.disneyplus.com/verify?code=abc", a.Value)
	})

	t.Run("empty body", func(t *testing.T) {
		raw := "Subject: x\r\nContent-Type: text/plain\r\n\r\n"
		a, _, err := e.ExtractMessage([]byte(raw), "x")
		require.NoError(t, err)
		assert.False(t, a.Found())
	})
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("word ", 300)
	p := Preview(long)
	assert.LessOrEqual(t, len([]rune(p)), previewLimit)
	assert.True(t, strings.HasSuffix(p, "..."))
}

func TestDecodeQuotedPrintable(t *testing.T) {
	t.Run("soft break and escaped utf-8", func(t *testing.T) {
		assert.Equal(t, "Tu código es 482913", decodeQuotedPrintable("Tu c=C3=B3digo es =\r\n482913"))
	})

	t.Run("decoded url queries are left alone", func(t *testing.T) {
		body := "Confirm here: https://example.com/verify?k=AB=CD&t=12"
		assert.Equal(t, body, decodeQuotedPrintable(body))
	})

	t.Run("invalid utf-8 after decoding keeps the original", func(t *testing.T) {
		body := "a=3Db =FF=FE"
		assert.Equal(t, body, decodeQuotedPrintable(body))
	})
}
