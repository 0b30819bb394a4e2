package signaling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Allocator hands out signaling endpoints for call sessions.
//
// Rules:
// - The returned value is opaque to billing; no further contract exists.
// - Media/signaling transport itself lives outside this service.
type Allocator interface {
	Allocate(ctx context.Context) (string, error)
}

// URLAllocator generates unique signaling URLs under a configured base.
// This stands in for a real signaling-server allocation API; billing logic
// is identical either way.
type URLAllocator struct {
	BaseURL string
}

func NewURLAllocator(baseURL string) (*URLAllocator, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("signaling base URL is required")
	}
	return &URLAllocator{BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (a *URLAllocator) Allocate(ctx context.Context) (string, error) {
	_ = ctx
	return fmt.Sprintf("%s/%s", a.BaseURL, uuid.NewString()), nil
}
