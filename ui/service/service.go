package service

import (
	"github.com/youssefsiam38/agentdesk"
)

// Service provides UI operations over an agentdesk Client.
type Service struct {
	client *agentdesk.Client
}

// New creates a new Service with the given client.
func New(client *agentdesk.Client) *Service {
	return &Service{
		client: client,
	}
}

// Client returns the underlying client.
// This is useful for advanced operations not covered by the service.
func (s *Service) Client() *agentdesk.Client {
	return s.client
}
