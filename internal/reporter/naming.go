package reporter

import (
	"strings"

	"github.com/dlobue/metrics-riemann/internal/domain"
)

// naming builds event drafts: service name, host, tags, and ttl come from the
// reporter configuration, metric value and timestamp are filled in by the
// caller. Pure data transformation, valid for any input.
type naming struct {
	prefix    string
	separator string
	host      string
	tags      []string
	ttl       float32
}

// newEvent assembles the service name from prefix, base name, and component
// segments. Segments are joined by the separator and, whenever component
// segments are present, the name keeps a trailing separator as well: with
// prefix "p" and separator "_", newEvent("x", "a", "b") names the event
// "p_x_a_b_". Downstream consumers matching on service names account for
// that trailing separator.
func (n naming) newEvent(base string, components ...string) domain.Event {
	var sb strings.Builder
	if n.prefix != "" {
		sb.WriteString(n.prefix)
		sb.WriteString(n.separator)
	}
	sb.WriteString(base)
	for _, part := range components {
		sb.WriteString(n.separator)
		sb.WriteString(part)
	}
	if len(components) > 0 {
		sb.WriteString(n.separator)
	}

	return domain.Event{
		Service: sb.String(),
		Host:    n.host,
		Tags:    n.tags,
		TTL:     n.ttl,
	}
}
