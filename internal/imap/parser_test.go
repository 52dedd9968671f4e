package imap

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageWithHeader(uid uint32, section *imap.BodySectionName, header string) *imap.Message {
	msg := imap.NewMessage(uid, nil)
	msg.Uid = uid
	msg.InternalDate = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg.Body = map[*imap.BodySectionName]imap.Literal{
		section: bytes.NewBufferString(header),
	}
	return msg
}

func TestParseHeader(t *testing.T) {
	section := headerSection()

	t.Run("keeps raw values", func(t *testing.T) {
		msg := messageWithHeader(42, section, "Subject: =?UTF-8?Q?Tu_c=C3=B3digo?=\r\n"+
			"Date: Sun, 1 Jun 2025 11:58:00 +0000\r\n"+
			"To: Shared <shared@example.com>\r\n"+
			"\r\n")

		h, err := parseHeader(msg, section)
		require.NoError(t, err)
		assert.Equal(t, uint32(42), h.UID)
		assert.Equal(t, "=?UTF-8?Q?Tu_c=C3=B3digo?=", h.Subject)
		assert.Equal(t, "Sun, 1 Jun 2025 11:58:00 +0000", h.Date)
		assert.Equal(t, "Shared <shared@example.com>", h.To)
		assert.Equal(t, msg.InternalDate, h.InternalDate)
	})

	t.Run("missing fields stay empty", func(t *testing.T) {
		msg := messageWithHeader(7, section, "Subject: Your sign-in code\r\n\r\n")

		h, err := parseHeader(msg, section)
		require.NoError(t, err)
		assert.Equal(t, "Your sign-in code", h.Subject)
		assert.Empty(t, h.Date)
		assert.Empty(t, h.To)
	})

	t.Run("no header literal", func(t *testing.T) {
		msg := imap.NewMessage(3, nil)
		msg.Uid = 3

		h, err := parseHeader(msg, section)
		assert.Error(t, err)
		assert.Equal(t, uint32(3), h.UID)
	})

	t.Run("nil message", func(t *testing.T) {
		_, err := parseHeader(nil, section)
		assert.Error(t, err)
	})
}

func TestHeaderSectionPeeks(t *testing.T) {
	section := headerSection()
	assert.True(t, section.Peek)
	assert.Equal(t, imap.PartSpecifier(imap.HeaderSpecifier), section.Specifier)
	assert.ElementsMatch(t, []string{"Subject", "Date", "To"}, section.Fields)
}
