// Package transport dispatches outbound documents to trading partners
// over their configured communication channel and tests channel
// connectivity. Channels never touch transaction state; the exchange
// service records the result.
package transport

import (
	"context"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
)

// Payload is one outbound document.
type Payload struct {
	Filename    string
	ContentType string // empty = application/edi-x12
	Content     []byte
}

// Result reports what a channel learned from a send.
type Result struct {
	MessageID      string // AS2 Message-ID when applicable
	MDNDisposition string // raw MDN disposition line when one came back
}

// Channel sends documents over one communication method.
type Channel interface {
	Send(ctx context.Context, partner *models.TradingPartner, payload Payload) (*Result, error)
	Test(ctx context.Context, partner *models.TradingPartner) error
}

// PolledFile is one file retrieved from a partner's remote inbox.
type PolledFile struct {
	Name    string
	Content []byte
}

// Registry dispatches on the partner's communication method.
type Registry struct {
	channels map[models.CommunicationMethod]Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: map[models.CommunicationMethod]Channel{}}
}

func (r *Registry) Register(method models.CommunicationMethod, ch Channel) {
	r.channels[method] = ch
}

// Send routes the payload to the partner's channel. An unregistered
// method is a configuration error, not a transport one: nothing was
// attempted on the wire.
func (r *Registry) Send(ctx context.Context, partner *models.TradingPartner, payload Payload) (*Result, error) {
	ch, ok := r.channels[partner.CommunicationMethod]
	if !ok {
		return nil, edierr.Newf(edierr.KindConfiguration, "no transport channel registered for method %s", partner.CommunicationMethod).
			AddPartner(partner.Code)
	}
	return ch.Send(ctx, partner, payload)
}

// Test probes the partner's channel without sending a document.
func (r *Registry) Test(ctx context.Context, partner *models.TradingPartner) error {
	ch, ok := r.channels[partner.CommunicationMethod]
	if !ok {
		return edierr.Newf(edierr.KindConfiguration, "no transport channel registered for method %s", partner.CommunicationMethod).
			AddPartner(partner.Code)
	}
	return ch.Test(ctx, partner)
}

// ManualChannel covers partners exchanging documents out of band (manual
// download, email, or a partner calling our API). Sending is a no-op:
// the document is generated and stored, the operator delivers it.
type ManualChannel struct{}

func (ManualChannel) Send(context.Context, *models.TradingPartner, Payload) (*Result, error) {
	return &Result{}, nil
}

func (ManualChannel) Test(context.Context, *models.TradingPartner) error {
	return nil
}
