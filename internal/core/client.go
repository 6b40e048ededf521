package core

import "sync"

const defaultClientBuffer = 32

// Client is one transport connection as seen by the core layer.
// ID is the connection id; it changes on every reconnect.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	// room is owned by the hub's command pump for this client.
	room string

	unregister sync.Once
	done       chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub stops processing this client's commands.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
