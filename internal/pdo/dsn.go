package pdo

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/xtg/pdo/internal/backend"
)

const (
	// DefaultPort is used when the connection string names no port.
	DefaultPort = 3307
	// DefaultHost is used when the connection string names no host.
	DefaultHost = "localhost"
)

// Descriptor is the parsed connection target.
type Descriptor struct {
	Kind         backend.Kind
	Host         string
	Port         int
	DBName       string
	User         string
	Password     string
	InitCommands []string
}

// target applies the host and port defaults.
func (d Descriptor) target() backend.Target {
	t := backend.Target{
		Host:     d.Host,
		Port:     d.Port,
		DBName:   d.DBName,
		User:     d.User,
		Password: d.Password,
	}
	if t.Port == 0 {
		t.Port = DefaultPort
	}
	if t.Host == "" {
		t.Host = DefaultHost
	}
	return t
}

// String renders the descriptor without the password.
func (d Descriptor) String() string {
	t := d.target()
	return fmt.Sprintf("%s://%s@%s/%s", d.Kind, t.User, net.JoinHostPort(t.Host, strconv.Itoa(t.Port)), t.DBName)
}

// parseDSN splits "<backend>:<key>=<value>;..." into the backend token and
// the recognized host, port and dbname fields. Unrecognized keys and
// malformed pairs are ignored; a port that is not a number in the TCP range
// stays unset.
func parseDSN(dsn string) (string, Descriptor, error) {
	parts := strings.Split(dsn, ":")
	if len(parts) != 2 {
		return "", Descriptor{}, fmt.Errorf("%w: %q", ErrInvalidConnectionString, dsn)
	}

	var d Descriptor
	for _, field := range strings.Split(parts[1], ";") {
		kv := strings.Split(field, "=")
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "host":
			d.Host = kv[1]
		case "port":
			if p, err := strconv.Atoi(kv[1]); err == nil && backend.CheckPort(p) == nil {
				d.Port = p
			}
		case "dbname":
			d.DBName = kv[1]
		}
	}
	return strings.ToLower(parts[0]), d, nil
}
