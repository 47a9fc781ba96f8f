// human readable and writable stdlib types
// which can be used inside config file
package model

import (
	"errors"
	"net"
	"net/url"
	"os"
	"strings"
	"time"
)

// URL expands environment variables before parsing, so secrets like
// redis://:${REDIS_PASSWORD}@host:6379 can stay outside the file.
type URL struct {
	*url.URL
}

func (u URL) IsZero() bool {
	return u.URL == nil
}

func (u *URL) UnmarshalText(text []byte) error {
	if u == nil {
		return errors.New("can't unmarshal to nil")
	}
	parsed, err := url.Parse(os.ExpandEnv(string(text)))
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("url must have a scheme and a host, e.g. redis://localhost:6379")
	}
	u.URL = parsed
	return nil
}

func (u URL) MarshalText() ([]byte, error) {
	if u.URL == nil {
		return []byte{}, nil
	}
	return []byte(u.String()), nil
}

type TCPAddr struct {
	*net.TCPAddr
}

// ParseTCPAddr resolves host:port, the host part may be empty.
func ParseTCPAddr(s string) (TCPAddr, error) {
	var addr TCPAddr
	err := addr.UnmarshalText([]byte(s))
	return addr, err
}

func (addr *TCPAddr) UnmarshalText(text []byte) error {
	if addr == nil {
		return errors.New("can't unmarshal to nil")
	}
	if len(text) == 0 {
		return errors.New("can't be empty")
	}
	expanded := os.ExpandEnv(string(text))
	parsed, err := net.ResolveTCPAddr("tcp", expanded)
	if err != nil {
		return err
	}
	addr.TCPAddr = parsed
	return nil
}

func (addr TCPAddr) MarshalText() ([]byte, error) {
	if addr.TCPAddr == nil {
		return []byte{}, nil
	}
	return []byte(addr.String()), nil
}

// Duration accepts both ISO 8601 (PT30S) and Go (30s) notation.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	if d == nil {
		return errors.New("can't unmarshal to nil")
	}
	s := strings.TrimSpace(string(text))
	if strings.HasPrefix(s, "P") {
		parsed, err := ParseISODuration(s)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
