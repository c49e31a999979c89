// Package ngtest provides an in-memory ng.Client for tests.
package ngtest

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/ng"
)

type key struct {
	t     ng.EntityType
	scope ng.Scope
	id    string
}

// Call records one CreateOrUpdate invocation.
type Call struct {
	Scope ng.Scope
	Doc   ng.Document
}

// Client stores imported documents in memory. Failures and delays can be
// injected per identifier.
type Client struct {
	mu       sync.Mutex
	docs     map[key][]byte
	calls    []Call
	gets     int
	failures map[string]error
	delays   map[string]time.Duration
	getErr   error
}

// New returns an empty fake target.
func New() *Client {
	return &Client{
		docs:     make(map[key][]byte),
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
	}
}

// FailOn makes every import of identifier id fail with err.
func (c *Client) FailOn(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[id] = err
}

// DelayOn makes imports of id block for d or until the call's context ends.
func (c *Client) DelayOn(id string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[id] = d
}

// FailGets makes every Get return err.
func (c *Client) FailGets(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getErr = err
}

// Seed stores a document as if a previous run had created it.
func (c *Client) Seed(t ng.EntityType, scope ng.Scope, id string, yaml []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key{t, scope, id}] = yaml
}

func (c *Client) CreateOrUpdate(ctx context.Context, scope ng.Scope, doc ng.Document) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Scope: scope, Doc: doc})
	delay := c.delays[doc.Identifier]
	failure := c.failures[doc.Identifier]
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", errors.Wrapf(errors.ErrTimeout, "import %s %s: %v", doc.Type, doc.Identifier, ctx.Err())
		}
	}
	if failure != nil {
		return "", failure
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key{doc.Type, scope, doc.Identifier}] = doc.YAML
	return doc.Identifier, nil
}

func (c *Client) Get(_ context.Context, t ng.EntityType, scope ng.Scope, id string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.docs[key{t, scope, id}], nil
}

// Calls returns every CreateOrUpdate call in order.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Identifiers returns the identifiers passed to CreateOrUpdate in order.
func (c *Client) Identifiers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.Doc.Identifier
	}
	return out
}

// Document returns a stored document.
func (c *Client) Document(t ng.EntityType, scope ng.Scope, id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[key{t, scope, id}]
	return doc, ok
}

// Len reports how many documents are stored.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// GetCount reports how many Get calls were made.
func (c *Client) GetCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

var _ ng.Client = (*Client)(nil)
