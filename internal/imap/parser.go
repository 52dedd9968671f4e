package imap

import (
	"bufio"
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/textproto"
)

var headerFields = []string{"Subject", "Date", "To"}

func headerSection() *imap.BodySectionName {
	return &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    headerFields,
		},
		Peek: true,
	}
}

// parseHeader reads the fetched header literal. Values are kept raw.
func parseHeader(msg *imap.Message, section *imap.BodySectionName) (Header, error) {
	if msg == nil {
		return Header{}, fmt.Errorf("imap message is nil")
	}

	h := Header{UID: msg.Uid, InternalDate: msg.InternalDate}

	literal := msg.GetBody(section)
	if literal == nil {
		return h, fmt.Errorf("no header literal for message %d", msg.Uid)
	}

	fields, err := textproto.ReadHeader(bufio.NewReader(literal))
	if err != nil {
		return h, fmt.Errorf("failed to parse header: %w", err)
	}

	h.Subject = fields.Get("Subject")
	h.Date = fields.Get("Date")
	h.To = fields.Get("To")
	return h, nil
}
