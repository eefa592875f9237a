package remote

import (
	"encoding/json"
	"fmt"

	"github.com/kolo/xmlrpc"
)

// Client speaks XML-RPC to the remote system of record (Odoo)
type Client struct {
	URL       string
	Database  string
	Username  string
	Password  string
	Uid       int
	CommonURL string
	ObjectURL string
}

// NewClient creates a new backend client
func NewClient(url, db, username, password string) *Client {
	return &Client{
		URL:       url,
		Database:  db,
		Username:  username,
		Password:  password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
	}
}

// Authenticate authenticates with the backend and stores the user ID
func (c *Client) Authenticate() (int, error) {
	client, err := xmlrpc.NewClient(c.CommonURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, make([]interface{}, 0)}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}

	c.Uid = uid
	return uid, nil
}

// Version calls the unauthenticated version endpoint. Used as a cheap
// reachability probe.
func (c *Client) Version() error {
	client, err := xmlrpc.NewClient(c.CommonURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	var info map[string]interface{}
	if err := client.Call("version", nil, &info); err != nil {
		return fmt.Errorf("version call failed: %w", err)
	}
	return nil
}

// SearchRead performs a search_read operation and decodes the result into
// a slice of structs carrying xmlrpc/json tags.
func (c *Client) SearchRead(model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error {
	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"search_read",
		[]interface{}{domain},
		map[string]interface{}{
			"fields": fields,
			"limit":  limit,
			"offset": offset,
		},
	}

	var rawResult []map[string]interface{}
	if err := c.execute(args, &rawResult); err != nil {
		return fmt.Errorf("failed to execute search_read: %w", err)
	}

	// The raw maps go through a JSON round-trip into the target struct
	jsonData, err := json.Marshal(rawResult)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(jsonData, result); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}
	return nil
}

// Search performs a search operation and returns record IDs
func (c *Client) Search(model string, domain []interface{}, limit, offset int) ([]int64, error) {
	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"search",
		[]interface{}{domain},
		map[string]interface{}{
			"limit":  limit,
			"offset": offset,
		},
	}

	var ids []int64
	if err := c.execute(args, &ids); err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	return ids, nil
}

// Create creates a new record and returns its remote id
func (c *Client) Create(model string, values map[string]interface{}) (int64, error) {
	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"create",
		[]interface{}{values},
	}

	var id int64
	if err := c.execute(args, &id); err != nil {
		return 0, fmt.Errorf("failed to create record: %w", err)
	}
	return id, nil
}

// Write updates existing record(s)
func (c *Client) Write(model string, ids []int64, values map[string]interface{}) error {
	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"write",
		[]interface{}{ids, values},
	}

	var success bool
	if err := c.execute(args, &success); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if !success {
		return fmt.Errorf("write operation returned false")
	}
	return nil
}

// Delete (unlink) deletes record(s)
func (c *Client) Delete(model string, ids []int64) error {
	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"unlink",
		[]interface{}{ids},
	}

	var success bool
	if err := c.execute(args, &success); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if !success {
		return fmt.Errorf("delete operation returned false")
	}
	return nil
}

// CallMethod calls a custom model method with keyword arguments
func (c *Client) CallMethod(model, method string, positional []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		method,
		positional,
	}
	if kwargs != nil {
		args = append(args, kwargs)
	}

	var result interface{}
	if err := c.execute(args, &result); err != nil {
		return nil, fmt.Errorf("failed to call method %s: %w", method, err)
	}
	return result, nil
}

// execute opens a short-lived XML-RPC connection for one execute_kw call
func (c *Client) execute(args []interface{}, result interface{}) error {
	client, err := xmlrpc.NewClient(c.ObjectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	return client.Call("execute_kw", args, result)
}
