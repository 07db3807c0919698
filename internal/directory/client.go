package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Employee is the directory's view of a staff member, used only to decorate
// sender names and avatars in chat responses.
type Employee struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Client is the employee-directory collaborator.
type Client interface {
	BulkEmployees(ctx context.Context, ids []int) ([]Employee, error)
	StoreMembers(ctx context.Context, storeID int) ([]int, error)
}

// HTTPClient talks to the directory service over REST.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient constructs a directory client with a request timeout so a
// slow directory cannot hang chat loads indefinitely.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// BulkEmployees fetches multiple employees in one call.
func (c *HTTPClient) BulkEmployees(ctx context.Context, ids []int) ([]Employee, error) {
	if len(ids) == 0 {
		return []Employee{}, nil
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	url := fmt.Sprintf("%s/internal/employees?ids=%s", c.baseURL, strings.Join(parts, ","))

	var resp struct {
		Employees []Employee `json:"employees"`
	}
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.Employees, nil
}

// StoreMembers returns the employee ids assigned to a store.
func (c *HTTPClient) StoreMembers(ctx context.Context, storeID int) ([]int, error) {
	url := fmt.Sprintf("%s/internal/stores/%d/members", c.baseURL, storeID)

	var resp struct {
		EmployeeIDs []int `json:"employee_ids"`
	}
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.EmployeeIDs, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("directory request: unexpected status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
