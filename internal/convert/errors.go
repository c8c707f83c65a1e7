package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrConfiguration       = errors.New("configuration error")
	ErrIdentifierCollision = errors.New("identifier collision")
	ErrJoinIntegrity       = errors.New("join integrity error")
	ErrShapeMismatch       = errors.New("shape mismatch")
	ErrSourceFormat        = errors.New("source format error")
)

// Scope identifies where in a session a failure happened. Unset fields are
// omitted from the rendered message.
type Scope struct {
	session    int
	probe      string
	region     string
	unit       int
	channel    int
	hasSession bool
	hasUnit    bool
	hasChannel bool
}

// SessionScope returns a scope naming only the session.
func SessionScope(session int) Scope {
	return Scope{session: session, hasSession: true}
}

// Probe returns a copy of s narrowed to a probe.
func (s Scope) Probe(probe string) Scope {
	s.probe = strings.TrimSpace(probe)
	return s
}

// Region returns a copy of s narrowed to a region.
func (s Scope) Region(region string) Scope {
	s.region = strings.TrimSpace(region)
	return s
}

// Unit returns a copy of s narrowed to a unit cluster id.
func (s Scope) Unit(cluster int) Scope {
	s.unit = cluster
	s.hasUnit = true
	return s
}

// Channel returns a copy of s narrowed to a local channel index.
func (s Scope) Channel(channel int) Scope {
	s.channel = channel
	s.hasChannel = true
	return s
}

func (s Scope) String() string {
	parts := make([]string, 0, 5)
	if s.hasSession {
		parts = append(parts, "session "+strconv.Itoa(s.session))
	}
	if s.probe != "" {
		parts = append(parts, "probe "+s.probe)
	}
	if s.region != "" {
		parts = append(parts, "region "+s.region)
	}
	if s.hasUnit {
		parts = append(parts, "unit "+strconv.Itoa(s.unit))
	}
	if s.hasChannel {
		parts = append(parts, "channel "+strconv.Itoa(s.channel))
	}
	return strings.Join(parts, " ")
}

// Wrap builds an error message that includes scope context while tagging it
// with the provided marker for classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, scope Scope, operation, message string, err error) error {
	detail := buildDetail(scope.String(), operation, message)
	if marker == nil {
		marker = ErrSourceFormat
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Errorf is shorthand for Wrap without a scope or cause.
func Errorf(marker error, operation, format string, args ...any) error {
	return Wrap(marker, Scope{}, operation, fmt.Sprintf(format, args...), nil)
}

// Kind returns a short classification label for err, suitable for log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrIdentifierCollision):
		return "identifier_collision"
	case errors.Is(err, ErrJoinIntegrity):
		return "join_integrity"
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrSourceFormat):
		return "source_format"
	default:
		return "internal"
	}
}

func buildDetail(scope, operation, message string) string {
	parts := make([]string, 0, 3)
	if scope = strings.TrimSpace(scope); scope != "" {
		parts = append(parts, scope)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "conversion failure"
	}
	return strings.Join(parts, ": ")
}
