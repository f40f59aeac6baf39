package acl

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jsamuelsen/daily-quote/internal/adapters/clients"
)

// BaseAdapter pairs a client with the name reported in domain errors.
// Embed it in source-specific adapters.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{client: client, serviceName: serviceName}
}

func (a *BaseAdapter) Client() *clients.Client { return a.client }

func (a *BaseAdapter) ServiceName() string { return a.serviceName }

// GetJSON decodes the response into a value of the external type E.
// Any failure comes back as a domain error.
func GetJSON[E any](ctx context.Context, a *BaseAdapter, path string, query url.Values, operation string) (*E, error) {
	var ext E
	if err := a.client.GetJSON(ctx, path, query, &ext); err != nil {
		return nil, MapError(err, a.serviceName, operation, path)
	}

	return &ext, nil
}

// Translator converts one external DTO into a domain value, rejecting invalid input.
type Translator[External any, Domain any] func(ext *External) (Domain, error)

// TranslateSlice applies translate to every item.
// Items that fail are collected in rejected instead of aborting the batch.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) (out []D, rejected []error) {
	out = make([]D, 0, len(items))

	for i := range items {
		translated, err := translate(&items[i])
		if err != nil {
			rejected = append(rejected, fmt.Errorf("translating item %d: %w", i, err))
			continue
		}

		out = append(out, translated)
	}

	return out, rejected
}
