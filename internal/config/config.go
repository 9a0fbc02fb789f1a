package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Error reports configuration that cannot be used: a malformed credentials
// file or an unrecognized setting. It is always fatal at startup.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Credentials is the member login pair read from the credentials file.
type Credentials struct {
	Username string
	Secret   string
}

// String never includes the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("%s/****", c.Username)
}

// LoadCredentials reads the first line of path, which must hold exactly two
// whitespace-separated tokens: "<username> <secret>".
func LoadCredentials(path string) (Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return Credentials{}, &Error{Field: "credentials", Err: err}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var line string
	if sc.Scan() {
		line = sc.Text()
	}
	if err := sc.Err(); err != nil {
		return Credentials{}, &Error{Field: "credentials", Err: err}
	}
	return ParseCredentials(line)
}

// ParseCredentials parses a single "<username> <secret>" line.
func ParseCredentials(line string) (Credentials, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Credentials{}, &Error{
			Field: "credentials",
			Err:   fmt.Errorf("expected \"<username> <secret>\", found %d token(s)", len(fields)),
		}
	}
	return Credentials{Username: fields[0], Secret: fields[1]}, nil
}

// SplitList splits a sep-separated flag value, trimming blanks and dropping
// empty entries. Order is preserved.
func SplitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Env returns the value of key, or def when it is unset or blank.
func Env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// IsError reports whether err is a configuration error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
