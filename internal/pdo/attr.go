package pdo

import "fmt"

// Attribute is a connection option settable through SetAttribute.
type Attribute int

const (
	// AttrErrorMode takes an ErrorMode.
	AttrErrorMode Attribute = iota + 1
	// AttrInitCommand takes a SQL string replayed after every fresh
	// connect. MySQL family only, and only before the first connect.
	AttrInitCommand
	// AttrStringifyFetches is accepted and ignored: fetched values are
	// always strings.
	AttrStringifyFetches
	// AttrBufferedQuery is recognized but never supported.
	AttrBufferedQuery
)

func (a Attribute) String() string {
	switch a {
	case AttrErrorMode:
		return "ERROR_MODE"
	case AttrInitCommand:
		return "INIT_COMMAND"
	case AttrStringifyFetches:
		return "STRINGIFY_FETCHES"
	case AttrBufferedQuery:
		return "BUFFERED_QUERY"
	default:
		return fmt.Sprintf("attribute(%d)", int(a))
	}
}

// SetAttribute applies one option and reports whether it was accepted.
// A rejected option leaves the connection unchanged.
func (c *Conn) SetAttribute(a Attribute, value any) bool {
	switch a {
	case AttrErrorMode:
		m, ok := value.(ErrorMode)
		if !ok || !m.valid() {
			return false
		}
		c.rep.mode = m
		return true
	case AttrInitCommand:
		cmd, ok := value.(string)
		if !ok || c.live != nil || c.driver == nil || !c.driver.Capabilities().InitCommands {
			return false
		}
		c.desc.InitCommands = append(c.desc.InitCommands, cmd)
		return true
	case AttrStringifyFetches:
		return true
	default:
		return false
	}
}
