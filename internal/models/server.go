package models

import (
	"fmt"
	"net"
	"strconv"
)

// MailServer is one shared IMAP server of the pool.
type MailServer struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Host              string `json:"host"`
	Port              int    `json:"port"`
	Username          string `json:"username"`
	EncryptedPassword []byte `json:"-"`
	UseTLS            bool   `json:"use_tls"`
	Enabled           bool   `json:"enabled"`
	Priority          int    `json:"priority"`
}

// Address returns host:port for dialing.
func (s MailServer) Address() string {
	port := s.Port
	if port == 0 {
		port = 993
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

func (s MailServer) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Address())
}
