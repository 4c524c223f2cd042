package smart

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fenilsonani/smarthttp/internal/substrate"
)

// Owner is the transport context that owns a Subtransport for the length
// of a protocol session. It supplies the per-session request headers
// (User-Agent, authorization and the like) applied when streams connect.
type Owner interface {
	RequestHeaders() map[string]string
}

// Subtransport creates Streams on demand for the protocol engine. It is
// long-lived relative to the streams it creates but does not own them:
// ownership transfers to the caller of Action, who must Free each stream.
type Subtransport struct {
	owner  Owner
	client substrate.Client
	logger zerolog.Logger
}

// NewSubtransport returns a Subtransport bound to its owning transport
// context and the substrate client that will carry its streams.
func NewSubtransport(owner Owner, client substrate.Client, logger zerolog.Logger) (*Subtransport, error) {
	if client == nil {
		return nil, fmt.Errorf("substrate client is required")
	}
	return &Subtransport{owner: owner, client: client, logger: logger}, nil
}

// Action returns a fresh unconnected Stream for the given service against
// baseURL. The service URL is fixed at creation and never reinterpreted.
func (t *Subtransport) Action(ctx context.Context, baseURL string, service Service) (*Stream, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("repository base URL is required")
	}

	var headers map[string]string
	if t.owner != nil {
		headers = t.owner.RequestHeaders()
	}

	s := &Stream{
		ctx:     ctx,
		client:  t.client,
		logger:  t.logger,
		service: service,
		url:     strings.TrimSuffix(baseURL, "/") + service.route().suffix,
		headers: headers,
		conn:    substrate.NoHandle,
	}
	t.logger.Debug().Stringer("service", service).Str("url", s.url).Msg("stream created")
	return s, nil
}

// Close is a no-op: the subtransport holds no resources beyond the
// streams it has already handed out.
func (t *Subtransport) Close() error { return nil }
